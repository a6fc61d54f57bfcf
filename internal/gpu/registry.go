// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// InstanceFactory creates a HAL instance for one backend.
type InstanceFactory func() (hal.Instance, error)

// RegistryEntry represents a registered HAL backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	//   - 100: native GPU APIs (Vulkan)
	//   - 0: the noop backend
	Priority int

	// Hardware reports whether the backend drives a real GPU. Only hardware
	// backends take part in automatic selection.
	Hardware bool

	// Factory creates the backend instance.
	Factory InstanceFactory

	// Available reports if the backend can be used on this system.
	Available func() bool
}

// instanceCreator is the part of a HAL backend this package needs.
type instanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// globalRegistry is the default registry.
var globalRegistry = NewRegistry()

// Registry manages the HAL backends Open can choose from.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and Open.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, hardware bool, factory InstanceFactory, available func() bool) {
	globalRegistry.Register(name, priority, hardware, factory, available)
}

// Backends returns all registered backend names sorted by priority.
func Backends() []string {
	return globalRegistry.List()
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, hardware bool, factory InstanceFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Hardware:  hardware,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(func(*RegistryEntry) bool { return true })
}

// Get returns a copy of the entry registered under name.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	entryCopy := *entry
	return &entryCopy, true
}

// Resolve returns the entries Open should try for name, in order.
// An empty name selects every available hardware backend by priority.
// A non-empty name selects exactly that backend, hardware or not.
func (r *Registry) Resolve(name string) ([]*RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		entry, ok := r.entries[name]
		if !ok {
			return nil, fmt.Errorf("%w: backend %q not registered", ErrNoAdapter, name)
		}
		if !entry.Available() {
			return nil, fmt.Errorf("%w: backend %q unavailable", ErrNoAdapter, name)
		}
		return []*RegistryEntry{entry}, nil
	}

	names := r.sortedNames(func(e *RegistryEntry) bool { return e.Hardware && e.Available() })
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no hardware backend available", ErrNoAdapter)
	}
	entries := make([]*RegistryEntry, len(names))
	for i, n := range names {
		entries[i] = r.entries[n]
	}
	return entries, nil
}

// sortedNames returns names of entries accepted by keep, highest priority
// first. Must be called with lock held.
func (r *Registry) sortedNames(keep func(*RegistryEntry) bool) []string {
	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e) {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// errBackendMissing is returned by factories whose HAL backend did not
// register itself (e.g. no Vulkan loader on this platform).
var errBackendMissing = errors.New("hal backend not registered")

func init() {
	Register("vulkan", 100, true, func() (hal.Instance, error) {
		backend, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, errBackendMissing
		}
		return createInstance(backend)
	}, func() bool {
		_, ok := hal.GetBackend(gputypes.BackendVulkan)
		return ok
	})

	Register("noop", 0, false, func() (hal.Instance, error) {
		return createInstance(&noop.API{})
	}, nil)
}

func createInstance(backend instanceCreator) (hal.Instance, error) {
	return backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
}
