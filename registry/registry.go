package registry

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/idreg/errors"
)

// Registry owns all entry storage and issues handles to it. Handles
// hold only a reference-counted claim on an id; payloads never leave
// the registry except through scoped guards.
type Registry struct {
	backend   Backend
	name      string
	observers []Observer
	obsMu     sync.RWMutex
	closeMu   sync.RWMutex
	closed    bool
}

// Option configures a Registry.
type Option func(*config)

type config struct {
	logger   *zap.Logger
	capacity uint64
	shards   int
}

// WithCapacity bounds the id space. Useful for forcing exhaustion in
// tests and for callers that want a hard budget on live entries.
func WithCapacity(n uint64) Option {
	return func(c *config) { c.capacity = n }
}

// WithShards partitions entry storage across n lock shards.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithLogger installs a package logger. Equivalent to calling SetLogger
// before the first registry operation.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	cfg := config{capacity: DefaultCapacity, shards: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}

	var backend Backend
	if cfg.shards > 1 {
		backend = NewShardedBackend(cfg.shards, cfg.capacity)
	} else {
		backend = NewLocalBackendWithCapacity(cfg.capacity)
	}

	r := &Registry{
		backend: backend,
		name:    uuid.NewString()[:8],
	}
	Logger().Debug("registry created",
		zap.String("registry", r.name),
		zap.Int("shards", cfg.shards),
		zap.Uint64("capacity", cfg.capacity))
	return r
}

// Create allocates a fresh id, stores the payload with reference count 1,
// and returns the sole handle to it.
func (r *Registry) Create(payload any) (*Handle, error) {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return nil, errors.Closed(errors.PhaseCreate)
	}

	id, gen, err := r.backend.Create(payload)
	if err != nil {
		return nil, err
	}

	r.notify(Event{Type: EventCreated, Id: id, RefCount: 1, Payload: payload})
	Logger().Debug("entry created",
		zap.String("registry", r.name),
		zap.Uint32("id", uint32(id)))

	return &Handle{id: id, gen: gen, reg: r}, nil
}

// RefCount returns the reference count for a live id.
func (r *Registry) RefCount(id Id) (uint32, bool) {
	return r.backend.RefCount(id)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return r.backend.Len()
}

// Each iterates over live entries until fn returns false.
func (r *Registry) Each(fn func(Id, uint32, any) bool) {
	r.backend.Each(fn)
}

// Snapshot returns a point-in-time view of all live entries, ordered by id.
func (r *Registry) Snapshot() []EntryInfo {
	var out []EntryInfo
	r.backend.Each(func(id Id, rc uint32, payload any) bool {
		out = append(out, EntryInfo{Id: id, RefCount: rc, Payload: payload})
		return true
	})
	return out
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Clear force-reclaims every live entry regardless of reference count.
// Outstanding handles become stale; any use of one afterwards is an
// invariant violation.
func (r *Registry) Clear() {
	type victim struct {
		id Id
		rc uint32
	}
	var victims []victim
	r.backend.Each(func(id Id, rc uint32, _ any) bool {
		victims = append(victims, victim{id, rc})
		return true
	})

	for _, v := range victims {
		gen, ok := r.backend.generation(v.id)
		if !ok {
			continue
		}
		for i := uint32(0); i < v.rc; i++ {
			payload, reclaimed, err := r.backend.Release(v.id, gen)
			if err != nil {
				Logger().Warn("clear: release failed",
					zap.String("registry", r.name),
					zap.Uint32("id", uint32(v.id)),
					zap.Error(err))
				break
			}
			if reclaimed {
				r.notify(Event{Type: EventReclaimed, Id: v.id, Payload: payload})
			}
		}
	}
}

// Close releases all entries and stops accepting operations. Payloads
// implementing io.Closer are closed; failures are aggregated.
func (r *Registry) Close() error {
	r.closeMu.Lock()
	r.closed = true
	r.closeMu.Unlock()

	Logger().Debug("registry closed", zap.String("registry", r.name))
	return r.backend.Close()
}

// Name returns the registry's correlation id, a short random token used
// to tell instances apart in logs.
func (r *Registry) Name() string {
	return r.name
}

// clone increments the reference count for a handle's id.
func (r *Registry) clone(id Id, gen uint64) error {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return errors.Closed(errors.PhaseClone)
	}

	if err := r.backend.Retain(id, gen); err != nil {
		r.logFatal(err)
		return err
	}

	rc, _ := r.backend.RefCount(id)
	r.notify(Event{Type: EventCloned, Id: id, RefCount: rc})
	return nil
}

// drop decrements the reference count and reclaims the entry when it
// first reaches zero.
func (r *Registry) drop(id Id, gen uint64) error {
	payload, reclaimed, err := r.backend.Release(id, gen)
	if err != nil {
		r.logFatal(err)
		return err
	}

	rc, _ := r.backend.RefCount(id)
	r.notify(Event{Type: EventDropped, Id: id, RefCount: rc})
	if reclaimed {
		r.notify(Event{Type: EventReclaimed, Id: id, Payload: payload})
		Logger().Debug("entry reclaimed",
			zap.String("registry", r.name),
			zap.Uint32("id", uint32(id)))
	}
	return nil
}

// acquire locks an entry's payload cell for a guard.
func (r *Registry) acquire(id Id, gen uint64, exclusive bool) (*slot, error) {
	s, err := r.backend.acquire(id, gen, exclusive)
	if err != nil {
		r.logFatal(err)
		return nil, err
	}
	return s, nil
}

func (r *Registry) logFatal(err error) {
	if errors.IsFatal(err) {
		Logger().Error("invariant violation",
			zap.String("registry", r.name),
			zap.Error(err))
	}
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnRegistryEvent(e)
	}
}
