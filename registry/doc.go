// Package registry provides a reference-counted id and handle registry.
//
// A Registry issues unique integer ids, stores one payload per live id,
// and tracks how many handles reference each id. The last handle drop
// reclaims the entry deterministically and returns the id to a free list
// for reuse.
//
// # Lifecycle
//
// Three operations drive an entry's lifetime:
//
//	create - allocate an id, store the payload, refcount starts at 1
//	clone  - another handle to the same id, refcount incremented
//	drop   - release one handle, entry reclaimed at refcount zero
//
// An id exists in the registry if and only if its refcount is above zero,
// and the refcount always equals the number of live handles.
//
// Reclaimed ids are reissued, so every entry also carries a generation
// that is bumped on reclaim. A handle minted before a reclaim no longer
// matches the generation of the id's next tenant and fails fatally
// instead of silently touching it.
//
// # Handles and guards
//
// Handles expose no payload fields. All access goes through scoped
// guards, which hold a per-entry reader/writer lock until released:
//
//	reg := registry.New()
//
//	h, err := reg.Create(42)
//	// ...
//	g, err := h.Get() // exclusive guard
//	g.Set(g.Value().(int) + 1)
//	g.Release()
//
// The closure forms release on every exit path, including panics:
//
//	err = h.Update(func(v any) any { return v.(int) + 1 })
//	err = h.View(func(v any) { fmt.Println(v) })
//
// Dropping the last handle while a guard is outstanding is refused as an
// invariant violation, as is any use of an id that is no longer live.
// See the errors package for the recoverable/fatal split.
//
// # Type safety
//
// Typed[T] wraps a registry whose payloads are all of one type:
//
//	people := registry.NewTyped[Person]()
//	h, err := people.Create(Person{Name: "ada"})
//	p, err := h.Load()
//
// # Concurrency
//
// All registry mutation is serialized by the backend lock, or by
// per-shard locks when constructed with WithShards. Payload guards use a
// per-entry RWMutex, so readers of different entries never contend.
package registry
