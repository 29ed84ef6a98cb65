package settlement

import (
	"sync"
	"time"
)

// Cache keeps computed sheets per customer for one as-of date. Writers must
// invalidate the customers a change touches; an entry computed for another
// date is never returned, so overdue days cannot go stale overnight.
//
// Readers take a Generation before loading their inputs and hand it to Put.
// Every Invalidate or Reset starts a new generation, and a Put carrying an
// older one is dropped, so sheets computed from data read before a write
// are never stored after it.
type Cache struct {
	mu      sync.RWMutex
	gen     uint64
	entries map[string]cacheEntry
}

type cacheEntry struct {
	asOf  time.Time
	sheet Sheet
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached sheet of customerID computed for asOf.
func (c *Cache) Get(customerID string, asOf time.Time) (Sheet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[customerID]
	if !ok || !e.asOf.Equal(asOf) {
		return Sheet{}, false
	}
	return e.sheet, true
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gen
}

// Put stores sheets computed for asOf from inputs read during generation
// gen. It reports false and stores nothing when the cache has been
// invalidated since.
func (c *Cache) Put(gen uint64, asOf time.Time, sheets ...Sheet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	for _, s := range sheets {
		c.entries[s.CustomerID] = cacheEntry{asOf: asOf, sheet: s}
	}
	return true
}

// Invalidate drops the given customers.
func (c *Cache) Invalidate(customerIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, id := range customerIDs {
		delete(c.entries, id)
	}
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached customers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
