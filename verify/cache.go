package verify

import (
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a TTL keyed store for precheck, DNS and provider verification
// outcomes. Keys are composite "<namespace>:<normalized-email-or-domain>"
// strings; each namespace picks its own TTL on Set. Expiry is lazy: an entry
// past its deadline is dropped on the next read, and SweepExpired evicts the
// rest periodically.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have replaced it.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	c.sets.Add(1)
}

// SweepExpired removes every entry past its deadline and returns how many were
// evicted.
func (c *Cache) SweepExpired() int {
	evicted := 0
	c.mu.Lock()
	now := c.now()
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.mu.Unlock()
	return evicted
}

// CacheStats is a point-in-time snapshot of cache counters since process start.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Keys   int   `json:"keys"`
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	keys := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Keys:   keys,
	}
}
