package secrets

import (
	"sync"
	"time"
)

type cacheItem[T any] struct {
	value      T
	expiration time.Time
}

// Cache is a thread-safe TTL cache for resolved secrets, parameterised on the
// value type so callers keep their parsed form rather than raw maps.
type Cache[T any] struct {
	mu   sync.RWMutex
	data map[string]cacheItem[T]
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a new TTL-based in-memory cache.
func NewCache[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		data: make(map[string]cacheItem[T]),
		ttl:  defaultTTL,
		now:  time.Now,
	}
}

// Get returns a cached value if present and not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	var zero T
	if !ok {
		return zero, false
	}
	if c.now().After(item.expiration) {
		c.mu.Lock()
		// re-check: a concurrent Put may have refreshed it
		if cur, ok := c.data[key]; ok && c.now().After(cur.expiration) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return item.value, true
}

// Put inserts or overwrites a cache entry with TTL.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheItem[T]{
		value:      value,
		expiration: c.now().Add(c.ttl),
	}
}

// Bust deletes a single entry from the cache (e.g., on secret rotation).
func (c *Cache[T]) Bust(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// StartCleaner periodically removes expired cache entries until stop is closed.
func (c *Cache[T]) StartCleaner(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-stop:
			return
		}
	}
}

func (c *Cache[T]) cleanupExpired() {
	now := c.now()
	c.mu.Lock()
	for k, v := range c.data {
		if now.After(v.expiration) {
			delete(c.data, k)
		}
	}
	c.mu.Unlock()
}
