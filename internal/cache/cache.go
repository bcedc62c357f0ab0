// Package cache provides an in-process key/value store whose entries expire
// at an absolute instant. Expired entries are treated as absent.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used by Set when no TTL is given.
const DefaultTTL = 24 * time.Hour

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe expiring cache for values of a single type.
// The zero value is not usable; construct with New.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	defaultTTL time.Duration
	now        func() time.Time
}

// WithDefaultTTL overrides DefaultTTL for Set.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) { o.defaultTTL = ttl }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{defaultTTL: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: o.defaultTTL,
		now:        o.now,
	}
}

// Get returns the value stored under key. found is false when the key was
// never set or its expiration instant is at or before now.
func (c *Cache[V]) Get(key string) (value V, found bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Contains reports whether key holds a live entry.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value with the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value expiring ttl from now. A ttl <= 0 stores an entry that
// is already expired.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	expiresAt := c.now().Add(ttl)
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Remove deletes key. Removing an absent key is a no-op.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Prune drops every expired entry and returns how many were removed.
func (c *Cache[V]) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
