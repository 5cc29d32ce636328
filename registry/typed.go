package registry

import (
	"fmt"

	"github.com/wippyai/idreg/errors"
)

// Typed is a type-safe facade over a Registry holding payloads of a
// single type T.
type Typed[T any] struct {
	reg *Registry
}

// NewTyped creates a registry constrained to payloads of type T.
func NewTyped[T any](opts ...Option) *Typed[T] {
	return &Typed[T]{reg: New(opts...)}
}

// Registry returns the underlying untyped registry.
func (t *Typed[T]) Registry() *Registry {
	return t.reg
}

// Create stores a payload and returns the sole handle to it.
func (t *Typed[T]) Create(payload T) (*TypedHandle[T], error) {
	h, err := t.reg.Create(payload)
	if err != nil {
		return nil, err
	}
	return &TypedHandle[T]{h: h}, nil
}

// Len returns the number of live entries.
func (t *Typed[T]) Len() int {
	return t.reg.Len()
}

// Each iterates over live entries until fn returns false.
func (t *Typed[T]) Each(fn func(Id, T) bool) {
	t.reg.Each(func(id Id, _ uint32, payload any) bool {
		v, ok := payload.(T)
		if !ok {
			return true
		}
		return fn(id, v)
	})
}

// Close releases all entries.
func (t *Typed[T]) Close() error {
	return t.reg.Close()
}

// TypedHandle is a shared-ownership capability over an entry of type T.
type TypedHandle[T any] struct {
	h *Handle
}

// Id returns the id this handle references.
func (th *TypedHandle[T]) Id() Id {
	return th.h.Id()
}

// Untyped returns the underlying handle.
func (th *TypedHandle[T]) Untyped() *Handle {
	return th.h
}

// Clone creates another handle for the same id.
func (th *TypedHandle[T]) Clone() (*TypedHandle[T], error) {
	h, err := th.h.Clone()
	if err != nil {
		return nil, err
	}
	return &TypedHandle[T]{h: h}, nil
}

// Drop releases this handle's reference.
func (th *TypedHandle[T]) Drop() error {
	return th.h.Drop()
}

// Load returns a copy of the payload under a shared guard.
func (th *TypedHandle[T]) Load() (T, error) {
	var out T
	err := th.h.View(func(payload any) {
		out, _ = payload.(T)
	})
	return out, err
}

// Store replaces the payload under an exclusive guard.
func (th *TypedHandle[T]) Store(v T) error {
	return th.h.Update(func(any) any { return v })
}

// Update runs fn with exclusive access and stores its result.
func (th *TypedHandle[T]) Update(fn func(T) T) error {
	return th.h.Update(func(payload any) any {
		v, ok := payload.(T)
		if !ok {
			// Payload type drifted under an untyped alias of this registry.
			panic(errors.Invariant(errors.PhaseAccess, uint32(th.h.Id()),
				fmt.Sprintf("payload is %T, not the registered type", payload)))
		}
		return fn(v)
	})
}

// View runs fn with shared read access to the payload.
func (th *TypedHandle[T]) View(fn func(T)) error {
	return th.h.View(func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}
