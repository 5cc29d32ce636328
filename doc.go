// Package idreg provides a reference-counted id and handle registry.
//
// The library issues unique integer ids, tracks which are live, grants
// shared access to per-id payloads through scoped guards, and reclaims
// ids deterministically when the last holder releases its reference.
//
// # Architecture Overview
//
// The library is organized into a few packages with distinct
// responsibilities:
//
//	idreg/           Root package (documentation only)
//	├── registry/    Core allocator, backends, registry, handles, guards
//	├── intern/      Bidirectional item<->id manager built on registry
//	├── errors/      Structured error types with a recoverable/fatal split
//	└── cmd/idreg/   CLI with a scripted mode and an interactive TUI
//
// # Quick Start
//
// Create an entry, share it, and let the last drop reclaim it:
//
//	reg := registry.New()
//	defer reg.Close()
//
//	h, err := reg.Create(42)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c, _ := h.Clone()          // refcount 2
//	c.Update(func(v any) any { // exclusive scoped access
//	    return v.(int) + 1
//	})
//	c.Drop()                   // refcount 1
//	h.Drop()                   // reclaimed, id reusable
//
// For homogeneous payloads, registry.Typed[T] provides the same
// lifecycle with compile-time payload types.
package idreg
