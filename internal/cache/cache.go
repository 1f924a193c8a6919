// Package cache provides a TTL-keyed memoization store for catalog query
// results. Expired entries are evicted lazily on the next read; there is no
// background sweeper.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the window during which a stored result stays valid.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is safe for concurrent use; a single mutex guards the map, which is
// enough because every critical section is a short map operation.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry

	// now is swapped in tests to drive expiry.
	now func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the stored value for key. A value older than the TTL is removed
// and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return e.value, true
}

func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Clear drops every entry unconditionally. Used for manual cache-busting, for
// example after a profile edit invalidates all match scores.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}
