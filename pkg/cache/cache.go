// Package cache provides a small in-memory lookup cache with expiry and
// least-recently-used eviction.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	expires    time.Time
	lastAccess time.Time
}

// Cache maps keys to values. The zero value is not usable; call New.
type Cache[K comparable, V any] struct {
	maxEntries int           // 0 = unbounded
	ttl        time.Duration // 0 = never expire
	now        func() time.Time

	mu      sync.Mutex
	entries map[K]*entry[V]
	hits    int
	misses  int
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock func() time.Time
}

// WithTTL expires entries ttl after they were stored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a cache holding at most maxEntries values.
func New[K comparable, V any](maxEntries int, opts ...Option) *Cache[K, V] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, V]{
		maxEntries: maxEntries,
		ttl:        o.ttl,
		now:        o.clock,
		entries:    make(map[K]*entry[V]),
	}
}

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// get must be called with the lock held.
func (c *Cache[K, V]) get(key K) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	now := c.now()
	if !e.expires.IsZero() && now.After(e.expires) {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}
	e.lastAccess = now
	c.hits++
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

func (c *Cache[K, V]) put(key K, value V) {
	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.lastAccess = now
		e.expires = c.expiry(now)
		return
	}
	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if !c.evictOldest() {
			break
		}
	}
	c.entries[key] = &entry[V]{value: value, lastAccess: now, expires: c.expiry(now)}
}

func (c *Cache[K, V]) expiry(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Failed loads are not cached. The lock is not held while load runs.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx, key)
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *Cache[K, V]) evictOldest() bool {
	var oldest *entry[V]
	var oldestKey K
	for k, e := range c.entries {
		if oldest == nil || e.lastAccess.Before(oldest.lastAccess) {
			oldest = e
			oldestKey = k
		}
	}
	if oldest == nil {
		return false
	}
	delete(c.entries, oldestKey)
	return true
}

// Stats reports the entry count and hit/miss counters.
type Stats struct {
	Entries int
	Hits    int
	Misses  int
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
