// Package catalog holds an in-memory snapshot of the admin-managed
// interest catalog. Enrollment validation reads the snapshot so the
// scheduler never touches the database; admin mutations reload it.
package catalog

import (
	"sort"
	"sync"

	"kindred/backend/internal/storage"
)

// Catalog is a read-mostly set of valid interest names.
type Catalog struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// New creates an empty catalog. Call Reload to populate it.
func New() *Catalog {
	return &Catalog{names: make(map[string]struct{})}
}

// Reload replaces the snapshot with the current catalog from storage.
func (c *Catalog) Reload(s storage.Storage) error {
	interests, err := s.ListInterests()
	if err != nil {
		return err
	}

	names := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		names[interest.Name] = struct{}{}
	}

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	return nil
}

// Contains reports whether name is a member of the current catalog.
func (c *Catalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[name]
	return ok
}

// ContainsAll reports whether every name is a member of the catalog.
func (c *Catalog) ContainsAll(names []string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range names {
		if _, ok := c.names[name]; !ok {
			return false
		}
	}
	return true
}

// Names returns the catalog as a sorted slice.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put inserts names directly, bypassing storage. Intended for tests and
// for seeding defaults before the catalog has rows.
func (c *Catalog) Put(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		c.names[name] = struct{}{}
	}
}
