package registry

import "sync/atomic"

// Guard is a scoped exclusive read/write token over one entry's payload.
// The payload lock is held from acquisition until Release; Release is
// idempotent so a deferred call is always safe.
type Guard struct {
	s        *slot
	backend  Backend
	id       Id
	released atomic.Bool
}

// Value returns the payload.
func (g *Guard) Value() any {
	return g.s.payload
}

// Set replaces the payload.
func (g *Guard) Set(payload any) {
	g.s.payload = payload
}

// Release unlocks the payload. Further Value/Set calls are invalid.
func (g *Guard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	g.s.mu.Unlock()
	g.backend.endGuard(g.id)
}

// RGuard is a scoped shared read-only token over one entry's payload.
// Multiple RGuards may be held concurrently for the same id.
type RGuard struct {
	s        *slot
	backend  Backend
	id       Id
	released atomic.Bool
}

// Value returns the payload.
func (g *RGuard) Value() any {
	return g.s.payload
}

// Release unlocks the payload. Further Value calls are invalid.
func (g *RGuard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	g.s.mu.RUnlock()
	g.backend.endGuard(g.id)
}
