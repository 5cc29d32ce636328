package registry

import (
	"sync"

	"github.com/wippyai/idreg/errors"
)

// Handle is a shared-ownership capability over one registry entry.
// Multiple handles may alias the same id; each live handle accounts for
// exactly one reference. A handle grants no direct payload access:
// all reads and writes go through scoped guards.
//
// Each handle must be dropped exactly once. Dropping the last handle
// for an id reclaims the entry and makes the id available for reuse.
// The handle remembers the entry's generation, so a handle left dangling
// across a reclaim fails fatally instead of touching whatever entry the
// id was reissued to.
type Handle struct {
	reg      *Registry
	id       Id
	gen      uint64
	mu       sync.Mutex
	released bool
}

// Id returns the id this handle references.
func (h *Handle) Id() Id {
	return h.id
}

// Clone creates another handle for the same id, incrementing its
// reference count. Cloning a released handle is an invariant violation.
func (h *Handle) Clone() (*Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, errors.Invariant(errors.PhaseClone, uint32(h.id), "handle already dropped")
	}
	if err := h.reg.clone(h.id, h.gen); err != nil {
		return nil, err
	}
	return &Handle{id: h.id, gen: h.gen, reg: h.reg}, nil
}

// Drop releases this handle's reference. The second Drop on the same
// handle is an invariant violation; the entry is reclaimed exactly once,
// when the count first reaches zero.
//
// A drop refused because a guard is still outstanding does not consume
// the handle: the backend decides refusal before the handle is marked
// released, so concurrent Clone calls on this handle never observe a
// half-dropped state, and the caller can retry once the blocking guard
// is gone.
func (h *Handle) Drop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return errors.Invariant(errors.PhaseDrop, uint32(h.id), "handle already dropped")
	}
	if err := h.reg.drop(h.id, h.gen); err != nil {
		return err
	}
	h.released = true
	return nil
}

// Get acquires an exclusive read/write guard over the payload.
// The caller must release the guard; prefer Update or View when the
// access fits in a closure.
func (h *Handle) Get() (*Guard, error) {
	if h.spent() {
		return nil, errors.Invariant(errors.PhaseAccess, uint32(h.id), "handle already dropped")
	}
	s, err := h.reg.acquire(h.id, h.gen, true)
	if err != nil {
		return nil, err
	}
	return &Guard{s: s, backend: h.reg.backend, id: h.id}, nil
}

// RGet acquires a shared read-only guard over the payload.
func (h *Handle) RGet() (*RGuard, error) {
	if h.spent() {
		return nil, errors.Invariant(errors.PhaseAccess, uint32(h.id), "handle already dropped")
	}
	s, err := h.reg.acquire(h.id, h.gen, false)
	if err != nil {
		return nil, err
	}
	return &RGuard{s: s, backend: h.reg.backend, id: h.id}, nil
}

// Update runs fn with exclusive access to the payload and stores its
// return value back into the entry. The guard is released on every exit
// path, including a panic inside fn.
func (h *Handle) Update(fn func(payload any) any) error {
	g, err := h.Get()
	if err != nil {
		return err
	}
	defer g.Release()

	g.Set(fn(g.Value()))
	return nil
}

// View runs fn with shared read access to the payload. The guard is
// released on every exit path, including a panic inside fn.
func (h *Handle) View(fn func(payload any)) error {
	g, err := h.RGet()
	if err != nil {
		return err
	}
	defer g.Release()

	fn(g.Value())
	return nil
}

// spent reports whether the handle has been dropped. Guard acquisition
// checks it outside h.mu so a blocked acquire does not pin the handle;
// the generation check in the backend catches the remaining race.
func (h *Handle) spent() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
