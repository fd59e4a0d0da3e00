package registry

import "sync"

// The process-wide registry. Declaration-time registration (init funcs),
// explicit registration helpers and imperative calls all funnel into this
// single table; no origin is privileged in lookup.
var (
	defaultMu       sync.RWMutex
	defaultRegistry = New()
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRegistry
}

// Reset replaces the process-wide registry with an empty one. It exists
// for test isolation; production code never resets mid-flight.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry = New()
}

// Register adds a binding to the process-wide registry.
func Register(namespace, name string, factory Factory, opts ...RegisterOption) error {
	return Default().Register(namespace, name, factory, opts...)
}

// MustRegister adds a binding to the process-wide registry and panics on
// error. Intended for static registration from init functions, so a name
// collision fails process startup.
func MustRegister(namespace, name string, factory Factory, opts ...RegisterOption) {
	Default().MustRegister(namespace, name, factory, opts...)
}
