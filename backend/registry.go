package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/tilerast/render"
)

// registry holds registered device factories.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first that opens wins).
	priority = []string{NameWGPU, NameSoftware}
)

// Register registers a device factory under name. Backend packages call
// it from init. An existing registration is replaced.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates a device with the named backend.
func Open(name string, cfg Config) (render.Device, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	d, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return d, nil
}

// Default opens the first backend in priority order that succeeds, then
// any other registered backend. It returns the chosen name.
func Default(cfg Config) (string, render.Device, error) {
	tried := make(map[string]bool)
	var errs []error
	for _, name := range append(slices.Clone(priority), Available()...) {
		if tried[name] || !IsRegistered(name) {
			continue
		}
		tried[name] = true
		d, err := Open(name, cfg)
		if err == nil {
			return name, d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", nil, ErrBackendNotAvailable
	}
	return "", nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, errs)
}
