// Package cache holds the last-fetched customer collection in memory.
// It is the single authority for the uniqueness invariant: no two cached
// records ever share an id, regardless of what the load path or the
// change feed delivers.
package cache

import (
	"sync"

	"github.com/tedtam/fieldops/internal/store"
)

// Cache is a mutex-guarded customer collection unique by id. Change-feed
// callbacks arrive on notifier goroutines, so all access is synchronized.
type Cache struct {
	mu      sync.RWMutex
	records []store.Customer
	index   map[string]int // id -> position in records
}

func New() *Cache {
	return &Cache{index: make(map[string]int)}
}

// ReplaceAll swaps in a freshly-listed collection. Duplicate ids in the
// input are filtered, keeping the first occurrence; production data has
// produced duplicates before, so the load path defends rather than trusts.
func (c *Cache) ReplaceAll(records []store.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = c.records[:0]
	c.index = make(map[string]int, len(records))
	for _, r := range records {
		if _, seen := c.index[r.ID]; seen {
			continue
		}
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
}

// Upsert inserts the record if its id is unseen, otherwise overwrites the
// existing entry in place, preserving position. Idempotent: applying the
// same record twice leaves the cache unchanged after the first.
func (c *Cache) Upsert(r store.Customer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[r.ID]; ok {
		c.records[pos] = r
		return
	}
	c.index[r.ID] = len(c.records)
	c.records = append(c.records, r)
}

// Remove deletes the record with the given id. Returns false when absent.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.index[id]
	if !ok {
		return false
	}
	c.records = append(c.records[:pos], c.records[pos+1:]...)
	delete(c.index, id)
	for i := pos; i < len(c.records); i++ {
		c.index[c.records[i].ID] = i
	}
	return true
}

// Get returns the cached record with the given id.
func (c *Cache) Get(id string) (store.Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[id]
	if !ok {
		return store.Customer{}, false
	}
	return c.records[pos], true
}

// Contains reports whether an id is cached.
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

// Snapshot returns a copy of the collection in cache order.
func (c *Cache) Snapshot() []store.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]store.Customer, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
