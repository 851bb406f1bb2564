// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"sort"
	"sync"
)

// Factory creates a surface of the given size.
type Factory func(width, height int) (Surface, error)

// Registry maps backend names to surface factories, so the rasterizer can
// pick its target by configuration.
//
// Example registration:
//
//	func init() {
//	    surface.Register("offscreen", myFactory)
//	}
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry. Most code uses the package-level
// Register and New.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var globalRegistry = NewRegistry()

// Register adds a backend to the global registry, replacing any previous
// entry with the same name.
func Register(name string, f Factory) { globalRegistry.Register(name, f) }

// New creates a surface with the named backend from the global registry.
func New(name string, width, height int) (Surface, error) {
	return globalRegistry.New(name, width, height)
}

// Names returns the registered backend names in sorted order.
func Names() []string { return globalRegistry.Names() }

// Register adds a backend.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New creates a surface with the named backend.
func (r *Registry) New(name string, width, height int) (Surface, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	return f(width, height)
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "surface: backend not found: " + e.Name
}

// init registers the built-in software backend.
func init() {
	Register("image", func(width, height int) (Surface, error) {
		if width < 1 || height < 1 {
			return nil, ErrInvalidSize
		}
		return NewImageSurface(width, height), nil
	})
}
