package registry

// Id is an opaque token identifying a live registry entry.
// Ids are unique among currently-live entries and are only reissued
// after the last handle referencing them has been dropped.
type Id uint32

// Event types for entry lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventCloned
	EventDropped
	EventReclaimed
)

// Event represents an entry lifecycle event.
type Event struct {
	Payload  any
	Id       Id
	RefCount uint32
	Type     EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnRegistryEvent(Event)
}

// EntryInfo is a point-in-time view of a live entry, used for
// diagnostics and inspection.
type EntryInfo struct {
	Payload  any
	Id       Id
	RefCount uint32
}

// Backend provides the underlying storage mechanism for registry entries.
// Implementations live in this package; the interface is sealed by the
// unexported slot accessor.
//
// Ids are reissued after reclaim, so an id alone cannot distinguish the
// entry a handle was minted for from a later tenant of the same id. Each
// entry therefore carries a generation, bumped every time its id is
// reclaimed. Operations take the generation the caller's handle was
// minted with and fail fatally on a mismatch.
type Backend interface {
	// Create stores a payload with an initial reference count of 1 and
	// returns the id together with its current generation.
	Create(payload any) (Id, uint64, error)

	// Retain increments the reference count for a live id.
	Retain(id Id, gen uint64) error

	// Release decrements the reference count. When the count reaches zero
	// the entry is removed, its id returned to the allocator, and the
	// payload returned with reclaimed=true.
	Release(id Id, gen uint64) (payload any, reclaimed bool, err error)

	// RefCount returns the current count for a live id.
	RefCount(id Id) (uint32, bool)

	// Len returns the number of live entries.
	Len() int

	// Each iterates over live entries until fn returns false.
	Each(fn func(Id, uint32, any) bool)

	// Close releases all entries. Payloads implementing io.Closer are
	// closed; failures are aggregated.
	Close() error

	// acquire locks an entry's payload cell for guarded access.
	acquire(id Id, gen uint64, exclusive bool) (*slot, error)

	// endGuard records that a guard over id has been released.
	endGuard(id Id)

	// generation returns the current generation for a live id.
	generation(id Id) (uint64, bool)
}
