package registry

import (
	"math"

	"github.com/wippyai/idreg/errors"
)

// DefaultCapacity is the size of the id space when none is configured:
// the full 32-bit range.
const DefaultCapacity = uint64(math.MaxUint32) + 1

// Allocator issues unique ids, monotonically or from a free list of
// previously reclaimed ids. It does not track liveness; the owning
// backend returns an id to the free list only after confirming no
// handle references it.
//
// An Allocator is not safe for concurrent use; backends serialize
// access under their own lock.
type Allocator struct {
	free     []Id
	next     uint64
	issued   uint64
	offset   uint64
	stride   uint64
	capacity uint64
}

// NewAllocator creates an allocator over ids 0..capacity-1.
func NewAllocator(capacity uint64) *Allocator {
	return NewStridedAllocator(0, 1, capacity)
}

// NewStridedAllocator creates an allocator issuing ids of the form
// offset + k*stride. Sharded backends use one strided allocator per
// shard so shards never issue overlapping ids.
func NewStridedAllocator(offset, stride uint32, capacity uint64) *Allocator {
	if stride == 0 {
		stride = 1
	}
	return &Allocator{
		offset:   uint64(offset),
		stride:   uint64(stride),
		capacity: capacity,
	}
}

// Next issues an id not currently live. Reclaimed ids are reused before
// the monotonic counter advances. Returns a resource-exhausted error when
// the id space is used up; the caller may retry after dropping handles.
func (a *Allocator) Next() (Id, error) {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.issued++
		return id, nil
	}

	candidate := a.offset + a.next*a.stride
	if candidate >= a.capacity || candidate > math.MaxUint32 {
		return 0, errors.Exhausted(errors.PhaseAllocate, a.capacity)
	}

	a.next++
	a.issued++
	return Id(candidate), nil
}

// Release returns a reclaimed id to the free list for reuse.
func (a *Allocator) Release(id Id) {
	a.free = append(a.free, id)
	a.issued--
}

// Live returns the number of ids issued and not yet released.
func (a *Allocator) Live() int {
	return int(a.issued)
}

// index maps an id issued by this allocator to its dense arena index.
// ok is false for ids this allocator could not have issued.
func (a *Allocator) index(id Id) (int, bool) {
	v := uint64(id)
	if v < a.offset || (v-a.offset)%a.stride != 0 {
		return 0, false
	}
	return int((v - a.offset) / a.stride), true
}
