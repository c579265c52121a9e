package registry

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

const (
	DefaultCapacity      = 10
	DefaultProbeInterval = 2 * time.Second
)

// StateListener is notified after a probe sweep for every provider whose
// state actually changed.
type StateListener func(p provider.Provider, from, to State)

// Entry is a registered provider together with its current state.
type Entry struct {
	Provider provider.Provider
	State    State
}

type entry struct {
	provider provider.Provider
	state    State
}

type Registry struct {
	mutex    sync.RWMutex
	entries  map[uuid.UUID]*entry
	healthy  atomic.Pointer[[]provider.Provider]
	capacity int
	interval time.Duration
	logger   *slog.Logger
	listener StateListener
}

type Option func(*Registry)

func WithCapacity(capacity int) Option {
	return func(r *Registry) {
		if capacity > 0 {
			r.capacity = capacity
		}
	}
}

func WithProbeInterval(interval time.Duration) Option {
	return func(r *Registry) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithStateListener(listener StateListener) Option {
	return func(r *Registry) {
		r.listener = listener
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[uuid.UUID]*entry),
		capacity: DefaultCapacity,
		interval: DefaultProbeInterval,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.healthy.Store(&[]provider.Provider{})
	return r
}

// Add registers the provider in the ACTIVE state. It returns false when the
// provider is already registered or the registry is full.
func (r *Registry) Add(p provider.Provider) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.entries) >= r.capacity {
		return false
	}

	if _, exists := r.entries[p.ID()]; exists {
		return false
	}

	r.entries[p.ID()] = &entry{provider: p, state: StateActive}
	r.publish()
	return true
}

// Remove unregisters the provider. It returns false when it was not registered.
func (r *Registry) Remove(p provider.Provider) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.entries[p.ID()]; !exists {
		return false
	}

	delete(r.entries, p.ID())
	r.publish()
	return true
}

// Healthy returns the ACTIVE providers ordered by identity. The returned
// slice belongs to the caller.
func (r *Registry) Healthy() []provider.Provider {
	return slices.Clone(*r.healthy.Load())
}

func (r *Registry) Lookup(id uuid.UUID) (provider.Provider, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.provider, true
}

func (r *Registry) State(id uuid.UUID) (State, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Entries returns every registered provider with its state, ordered by identity.
func (r *Registry) Entries() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, Entry{Provider: e.provider, State: e.state})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return provider.Compare(a.Provider, b.Provider)
	})
	return entries
}

func (r *Registry) Size() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.entries)
}

func (r *Registry) Capacity() int {
	return r.capacity
}

func (r *Registry) ProbeInterval() time.Duration {
	return r.interval
}

// publish rebuilds the healthy snapshot. Callers must hold the write lock.
func (r *Registry) publish() {
	healthy := make([]provider.Provider, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state == StateActive {
			healthy = append(healthy, e.provider)
		}
	}

	provider.Sort(healthy)
	r.healthy.Store(&healthy)
}
