package toolchain

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry holds the configured adapters and answers which of them claims a
// given fixture path. It is populated once at startup from the manifest and
// then only read, but stays safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	byName map[string]Adapter
	byExt  map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Adapter),
		byExt:  make(map[string]Adapter),
	}
}

// Register adds an adapter. Duplicate names or extension claims are
// configuration mistakes and rejected outright.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("adapter %q already registered", name)
	}
	for _, ext := range a.Extensions() {
		if prev, ok := r.byExt[ext]; ok {
			return fmt.Errorf("extension %q claimed by both %q and %q", ext, prev.Name(), name)
		}
	}

	r.byName[name] = a
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
	return nil
}

// ByName returns the adapter registered under name.
func (r *Registry) ByName(name string) (Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byName[name]
	return a, ok
}

// ForFile picks the adapter claiming the path's extension.
func (r *Registry) ForFile(path string) (Adapter, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byExt[ext]
	return a, ok
}

// All returns the registered adapters sorted by name.
func (r *Registry) All() []Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Adapter, 0, len(r.byName))
	for _, a := range r.byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}
