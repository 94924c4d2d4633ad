package eventbus

import "sync"

// Registry tracks the process-wide active bus for code that cannot receive a
// bus by parameter. Such code must call Get at the moment it emits; the active
// bus changes across match lifecycles.
type Registry struct {
	mu     sync.RWMutex
	active *Bus
}

// NewRegistry creates a registry with no active bus.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set makes b the active bus.
func (r *Registry) Set(b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = b
}

// Get returns the active bus, or nil.
func (r *Registry) Get() *Bus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Replace installs next only if old is still the active bus.
func (r *Registry) Replace(old, next *Bus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != old {
		return false
	}
	r.active = next
	return true
}

// Clear drops b if it is the active bus.
func (r *Registry) Clear(b *Bus) bool {
	return r.Replace(b, nil)
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// EmitActive emits on whichever bus is active in the default registry right
// now. It does nothing when no bus is active.
func EmitActive(name string, detail any) {
	if b := defaultRegistry.Get(); b != nil {
		b.Emit(name, detail)
	}
}
