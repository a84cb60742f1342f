package store

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Store)
)

// Register makes a store available under a disk name. Configuration refers
// to stores by these names ("local", "backup", ...). Registering the same
// name twice replaces the previous store.
func Register(name string, s Store) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = s
}

// Disk returns the store registered under name.
func Disk(name string) (Store, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	return s, ok
}

// Unregister removes a named store. Mainly useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}
