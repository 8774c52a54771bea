package assetstore

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an adapter bound to one assetstore configuration.
type Factory func(store *Assetstore) (Adapter, error)

// Registry dispatches adapter construction on the explicit backend tag
// carried by an Assetstore document.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs a factory for a backend tag, replacing any previous one.
func (r *Registry) Register(backend string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[backend] = factory
}

// New constructs an adapter for the store's backend tag.
func (r *Registry) New(store *Assetstore) (Adapter, error) {
	if store == nil {
		return nil, fmt.Errorf("assetstore is required")
	}

	r.mu.RLock()
	factory, ok := r.factories[store.Backend]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, store.Backend)
	}
	return factory(store)
}

// Backends returns the registered backend tags in sorted order.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
