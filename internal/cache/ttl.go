// Package cache provides a small thread-safe cache with time-based expiration.
package cache

import (
	"sync"
	"time"
)

// TTL is a thread-safe cache whose entries share one timestamp. Once the TTL
// has passed since the last write, every entry is stale and the next Load
// starts a fresh generation.
type TTL[K comparable, V any] struct {
	mu        sync.RWMutex
	data      map[K]V
	timestamp time.Time
	ttl       time.Duration
	now       func() time.Time
}

// New returns an empty cache. A ttl of zero or less disables caching: Get
// always misses and Load always calls through.
func New[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		data: make(map[K]V),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value for key if the cache has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expiredLocked() {
		var zero V
		return zero, false
	}
	v, ok := c.data[key]
	return v, ok
}

// Set stores value under key. Writing to an expired cache drops the old
// generation first.
func (c *TTL[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expiredLocked() {
		c.data = make(map[K]V)
		c.timestamp = c.now()
	}
	c.data[key] = value
}

// Load returns the cached value for key, calling fetch on a miss. Errors are
// not cached.
func (c *TTL[K, V]) Load(key K, fetch func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate drops every entry.
func (c *TTL[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[K]V)
	c.timestamp = time.Time{}
}

// Len returns the number of stored entries, stale or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// expiredLocked must be called with c.mu held.
func (c *TTL[K, V]) expiredLocked() bool {
	return c.ttl <= 0 || c.timestamp.IsZero() || c.now().Sub(c.timestamp) >= c.ttl
}
