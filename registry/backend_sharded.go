package registry

import (
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/wippyai/idreg/errors"
)

// ShardedBackend partitions the id space across N independent
// LocalBackends so unrelated entries don't contend on one lock.
// Shard i issues ids congruent to i modulo N, which makes routing an
// id to its shard a single mask operation.
type ShardedBackend struct {
	shards []*LocalBackend
	rr     atomic.Uint32
	mask   uint32
}

// NewShardedBackend creates a backend with n shards. n is rounded up to
// the next power of two so id routing stays a mask.
func NewShardedBackend(n int, capacity uint64) *ShardedBackend {
	if n < 1 {
		n = 1
	}
	size := 1
	for size < n {
		size <<= 1
	}

	b := &ShardedBackend{
		shards: make([]*LocalBackend, size),
		mask:   uint32(size - 1),
	}
	for i := range b.shards {
		alloc := NewStridedAllocator(uint32(i), uint32(size), capacity)
		b.shards[i] = newLocalBackend(alloc)
	}
	return b
}

// Shards returns the shard count.
func (b *ShardedBackend) Shards() int {
	return len(b.shards)
}

func (b *ShardedBackend) shard(id Id) *LocalBackend {
	return b.shards[uint32(id)&b.mask]
}

// Create stores a payload in the next shard round-robin. When a shard's
// id slice is exhausted the remaining shards are tried before reporting
// exhaustion.
func (b *ShardedBackend) Create(payload any) (Id, uint64, error) {
	start := b.rr.Add(1)
	var lastErr error

	for i := 0; i < len(b.shards); i++ {
		shard := b.shards[(start+uint32(i))&b.mask]
		id, gen, err := shard.Create(payload)
		if err == nil {
			return id, gen, nil
		}
		if !errors.IsExhausted(err) {
			return 0, 0, err
		}
		lastErr = err
	}
	return 0, 0, lastErr
}

// Retain increments the reference count on the owning shard.
func (b *ShardedBackend) Retain(id Id, gen uint64) error {
	return b.shard(id).Retain(id, gen)
}

// Release decrements the reference count on the owning shard.
func (b *ShardedBackend) Release(id Id, gen uint64) (any, bool, error) {
	return b.shard(id).Release(id, gen)
}

// RefCount returns the current count for a live id.
func (b *ShardedBackend) RefCount(id Id) (uint32, bool) {
	return b.shard(id).RefCount(id)
}

// Len returns the number of live entries across all shards.
func (b *ShardedBackend) Len() int {
	total := 0
	for _, s := range b.shards {
		total += s.Len()
	}
	return total
}

// Each iterates over live entries shard by shard until fn returns false.
func (b *ShardedBackend) Each(fn func(Id, uint32, any) bool) {
	stopped := false
	for _, s := range b.shards {
		if stopped {
			return
		}
		s.Each(func(id Id, rc uint32, payload any) bool {
			if !fn(id, rc, payload) {
				stopped = true
				return false
			}
			return true
		})
	}
}

// Close releases all shards, aggregating payload close failures.
func (b *ShardedBackend) Close() error {
	var errs error
	for _, s := range b.shards {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}

func (b *ShardedBackend) acquire(id Id, gen uint64, exclusive bool) (*slot, error) {
	return b.shard(id).acquire(id, gen, exclusive)
}

func (b *ShardedBackend) endGuard(id Id) {
	b.shard(id).endGuard(id)
}

func (b *ShardedBackend) generation(id Id) (uint64, bool) {
	return b.shard(id).generation(id)
}
