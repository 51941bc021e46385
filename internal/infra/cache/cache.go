package cache

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL cache for read models. Entries are
// dropped lazily on read and eagerly on invalidation.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
}

type entry[T any] struct {
	value   T
	expires time.Time
}

func New[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if time.Now().After(item.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	return item.value, true
}

func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}
