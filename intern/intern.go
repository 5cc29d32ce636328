package intern

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/idreg/registry"
)

// Interner assigns stable ids to distinct items and answers lookups in
// both directions. Each distinct item is stored once in an underlying
// registry; the interner retains the sole handle and releases it when
// the item is deleted.
type Interner[T comparable] struct {
	reg    *registry.Typed[T]
	byItem map[T]*registry.TypedHandle[T]
	byId   map[registry.Id]T
	mu     sync.RWMutex
}

// New creates an empty interner.
func New[T comparable](opts ...registry.Option) *Interner[T] {
	return &Interner[T]{
		reg:    registry.NewTyped[T](opts...),
		byItem: make(map[T]*registry.TypedHandle[T]),
		byId:   make(map[registry.Id]T),
	}
}

// Insert assigns a fresh id to item, or returns the existing id when the
// item is already interned.
func (in *Interner[T]) Insert(item T) (registry.Id, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if h, ok := in.byItem[item]; ok {
		return h.Id(), nil
	}

	h, err := in.reg.Create(item)
	if err != nil {
		return 0, err
	}
	in.byItem[item] = h
	in.byId[h.Id()] = item
	return h.Id(), nil
}

// IdOf returns the id assigned to item.
func (in *Interner[T]) IdOf(item T) (registry.Id, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	h, ok := in.byItem[item]
	if !ok {
		return 0, false
	}
	return h.Id(), true
}

// ItemOf returns the item assigned to id.
func (in *Interner[T]) ItemOf(id registry.Id) (T, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	item, ok := in.byId[id]
	return item, ok
}

// Delete removes an interned item, releasing its id for reuse.
// Returns false when the item was never interned.
func (in *Interner[T]) Delete(item T) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	h, ok := in.byItem[item]
	if !ok {
		registry.Logger().Warn("tried to delete nonexistent item")
		return false
	}

	delete(in.byItem, item)
	delete(in.byId, h.Id())
	if err := h.Drop(); err != nil {
		registry.Logger().Error("interner handle drop failed", zap.Error(err))
	}
	return true
}

// Len returns the number of interned items.
func (in *Interner[T]) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byItem)
}

// Close releases the underlying registry.
func (in *Interner[T]) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.byItem = nil
	in.byId = nil
	return in.reg.Close()
}
