package backend

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrUnknownBackend is returned by Resolve for names nobody registered.
var ErrUnknownBackend = errors.New("unknown backend")

// BackendInfo is the /v1/backends view of one registered backend.
type BackendInfo struct {
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
}

// Registry maps backend names, such as "process" or "stub", to backends.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[string]Backend{}}
}

// Register makes b available as name, replacing any earlier registration.
func (r *Registry) Register(name string, b Backend) {
	if b == nil {
		panic("backend: Register " + name + " with nil backend")
	}
	r.mu.Lock()
	r.byKey[name] = b
	r.mu.Unlock()
}

func (r *Registry) Resolve(name string) (Backend, error) {
	r.mu.RLock()
	b, ok := r.byKey[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// List describes every registered backend in name order.
func (r *Registry) List() []BackendInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Sorted(maps.Keys(r.byKey))
	infos := make([]BackendInfo, len(names))
	for i, name := range names {
		infos[i] = BackendInfo{Name: name, Capabilities: r.byKey[name].Capabilities()}
	}
	return infos
}
