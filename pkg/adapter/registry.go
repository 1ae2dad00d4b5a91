package adapter

import (
	"sync"

	"github.com/rhuss/weiche/pkg/api"
)

// Registry maps provider kinds to adapter instances. At most one adapter
// is held per kind; registering a second adapter for the same kind
// replaces the first. Tests rely on that for hot-swapping fakes.
//
// The registry is effectively immutable after startup; the lock exists
// only for the registration window and test swaps.
type Registry struct {
	mu     sync.RWMutex
	byKind map[api.ProviderKind]ChatAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[api.ProviderKind]ChatAdapter)}
}

// Register adds an adapter under its own kind, replacing any previous
// adapter for that kind (last write wins, not an error).
func (r *Registry) Register(a ChatAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[a.Kind()] = a
}

// Get returns the adapter for the given kind, or false if none is
// registered.
func (r *Registry) Get(kind api.ProviderKind) (ChatAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byKind[kind]
	return a, ok
}

// Kinds lists the registered provider kinds in unspecified order.
func (r *Registry) Kinds() []api.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]api.ProviderKind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	return kinds
}

// Empty reports whether no adapters are registered.
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind) == 0
}
