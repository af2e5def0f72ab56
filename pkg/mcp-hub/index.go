package mcphub

import "sync"

// nameIndex caches the owner alias for both raw and qualified tool names.
// It is advisory: routing always re-resolves the alias against the live
// registry, so entries pointing at a removed upstream are misses, never
// errors. Later writes win on collision.
type nameIndex struct {
	mu     sync.RWMutex
	owners map[string]string
}

func newNameIndex() *nameIndex {
	return &nameIndex{owners: make(map[string]string)}
}

func (i *nameIndex) set(name, alias string) {
	i.mu.Lock()
	i.owners[name] = alias
	i.mu.Unlock()
}

func (i *nameIndex) lookup(name string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	alias, ok := i.owners[name]
	return alias, ok
}
