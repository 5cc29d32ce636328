package registry

import (
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/idreg/errors"
)

// slot is the storage cell for one entry. The backend lock guards
// refCount, guards, live and gen; mu guards only the payload and is held
// for the lifetime of an access guard. gen counts reclaims of this cell's
// id so stale handles minted before a reclaim cannot touch a later tenant
// of the same id.
type slot struct {
	mu       sync.RWMutex
	payload  any
	gen      uint64
	refCount uint32
	guards   uint32
	live     bool
}

// LocalBackend is an in-memory backend with a slice arena indexed by id
// and a single lock serializing all entry mutation.
type LocalBackend struct {
	alloc *Allocator
	arena []*slot
	mu    sync.RWMutex
	close sync.Once
	done  bool
}

// NewLocalBackend creates a backend over the default id space.
func NewLocalBackend() *LocalBackend {
	return NewLocalBackendWithCapacity(DefaultCapacity)
}

// NewLocalBackendWithCapacity creates a backend with a bounded id space.
// Small capacities are useful for exercising exhaustion handling.
func NewLocalBackendWithCapacity(capacity uint64) *LocalBackend {
	return newLocalBackend(NewAllocator(capacity))
}

func newLocalBackend(alloc *Allocator) *LocalBackend {
	return &LocalBackend{
		alloc: alloc,
		arena: make([]*slot, 0, 16),
	}
}

// Create stores a payload with reference count 1 and returns its id and
// generation. A reused slot keeps the generation bumped at its last
// reclaim, so handles minted for the previous tenant no longer match.
func (b *LocalBackend) Create(payload any) (Id, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return 0, 0, errors.Closed(errors.PhaseCreate)
	}

	id, err := b.alloc.Next()
	if err != nil {
		return 0, 0, err
	}

	idx, _ := b.alloc.index(id)
	for idx >= len(b.arena) {
		b.arena = append(b.arena, nil)
	}
	if b.arena[idx] == nil {
		b.arena[idx] = &slot{}
	}

	s := b.arena[idx]
	s.payload = payload
	s.refCount = 1
	s.guards = 0
	s.live = true
	return id, s.gen, nil
}

// Retain increments the reference count. A retain on an id that is not
// live, or that was reclaimed and reissued since the caller's handle was
// minted, signals a broken refcount invariant and is fatal.
func (b *LocalBackend) Retain(id Id, gen uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return errors.Closed(errors.PhaseClone)
	}

	s, err := b.lookupGen(errors.PhaseClone, id, gen)
	if err != nil {
		return err
	}

	s.refCount++
	return nil
}

// Release decrements the reference count. At zero the entry is removed
// exactly once, its generation bumped, and the id returned to the
// allocator's free list.
func (b *LocalBackend) Release(id Id, gen uint64) (any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return nil, false, errors.Closed(errors.PhaseDrop)
	}

	s, err := b.lookupGen(errors.PhaseDrop, id, gen)
	if err != nil {
		return nil, false, err
	}

	if s.refCount == 1 && s.guards > 0 {
		return nil, false, errors.Invariant(errors.PhaseDrop, uint32(id), "outstanding access guards")
	}

	s.refCount--
	if s.refCount > 0 {
		return nil, false, nil
	}

	payload := s.payload
	s.payload = nil
	s.live = false
	s.gen++
	b.alloc.Release(id)
	return payload, true, nil
}

// RefCount returns the current count for a live id.
func (b *LocalBackend) RefCount(id Id) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.lookup(id)
	if !ok {
		return 0, false
	}
	return s.refCount, true
}

// Len returns the number of live entries.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.done {
		return 0
	}
	return b.alloc.Live()
}

// Each iterates over live entries until fn returns false.
func (b *LocalBackend) Each(fn func(Id, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for idx, s := range b.arena {
		if s == nil || !s.live {
			continue
		}
		id := Id(b.alloc.offset + uint64(idx)*b.alloc.stride)
		if !fn(id, s.refCount, s.payload) {
			return
		}
	}
}

// Close releases all entries, closing payloads that implement io.Closer.
// Each slot's payload lock is taken before the payload is cleared, so
// Close waits for outstanding guards instead of yanking the payload out
// from under them.
func (b *LocalBackend) Close() error {
	var errs error

	b.close.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.done = true
		for _, s := range b.arena {
			if s == nil || !s.live {
				continue
			}
			s.mu.Lock()
			if c, ok := s.payload.(io.Closer); ok {
				errs = multierr.Append(errs, c.Close())
			}
			s.live = false
			s.payload = nil
			s.refCount = 0
			s.gen++
			s.mu.Unlock()
		}
		b.arena = nil
	})

	return errs
}

// acquire locks an entry's payload cell. The guard count is bumped under
// the backend lock before blocking on the payload lock, which keeps the
// last drop from reclaiming the entry mid-acquisition.
func (b *LocalBackend) acquire(id Id, gen uint64, exclusive bool) (*slot, error) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return nil, errors.Closed(errors.PhaseAccess)
	}
	s, err := b.lookupGen(errors.PhaseAccess, id, gen)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}
	s.guards++
	b.mu.Unlock()

	if exclusive {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}
	return s, nil
}

// endGuard records that a guard over id has been released.
func (b *LocalBackend) endGuard(id Id) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.alloc.index(id)
	if !ok || idx >= len(b.arena) || b.arena[idx] == nil {
		return
	}
	s := b.arena[idx]
	if s.guards > 0 {
		s.guards--
	}
}

// generation returns the current generation for a live id.
func (b *LocalBackend) generation(id Id) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.lookup(id)
	if !ok {
		return 0, false
	}
	return s.gen, true
}

// lookup returns the live slot for id. Callers hold b.mu.
func (b *LocalBackend) lookup(id Id) (*slot, bool) {
	idx, ok := b.alloc.index(id)
	if !ok || idx >= len(b.arena) {
		return nil, false
	}
	s := b.arena[idx]
	if s == nil || !s.live {
		return nil, false
	}
	return s, true
}

// lookupGen is lookup plus a generation check, distinguishing an id that
// was never live from one that was reclaimed and reissued. Callers hold
// b.mu.
func (b *LocalBackend) lookupGen(phase errors.Phase, id Id, gen uint64) (*slot, error) {
	s, ok := b.lookup(id)
	if !ok {
		return nil, errors.Invariant(phase, uint32(id), "id not live")
	}
	if s.gen != gen {
		return nil, errors.Invariant(phase, uint32(id), "id reissued since handle was created")
	}
	return s, nil
}
