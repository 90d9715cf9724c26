package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/flowstate-labs/predengine/clock"
)

type entry struct {
	value      any
	expiresAtMs int64
	hasExpiry   bool
	lastAccessMs int64
}

// Cache is the clock-injected, singleflight-backed variant: concurrent
// GetOrFetch calls for the same key collapse into a single underlying
// fetch, and expiry is driven off an injected clock.Clock so tests can
// control time deterministically rather than sleeping.
type Cache struct {
	mu      sync.Mutex
	clk     clock.Clock
	maxSize int
	data    map[string]*entry
	stats   Stats

	group singleflight.Group
}

// New builds a Cache bounded to maxSize entries; maxSize<=0 means
// unbounded.
func New(clk clock.Clock, maxSize int) *Cache {
	return &Cache{clk: clk, maxSize: maxSize, data: make(map[string]*entry)}
}

// Get returns the value for k if present and unexpired.
func (c *Cache) Get(k string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(k)
}

func (c *Cache) getLocked(k string) (any, bool) {
	e, ok := c.data[k]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if e.hasExpiry && c.clk.NowMs() >= e.expiresAtMs {
		delete(c.data, k)
		c.stats.Misses++
		return nil, false
	}
	e.lastAccessMs = c.clk.NowMs()
	c.stats.Hits++
	return e.value, true
}

// Set stores v under k with an optional ttlMs (ttlMs<=0 means no expiry).
func (c *Cache) Set(k string, v any, ttlMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(k, v, ttlMs)
}

func (c *Cache) setLocked(k string, v any, ttlMs int64) {
	if _, exists := c.data[k]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.evictOldestLocked()
	}
	now := c.clk.NowMs()
	e := &entry{value: v, lastAccessMs: now}
	if ttlMs > 0 {
		e.hasExpiry = true
		e.expiresAtMs = now + ttlMs
	}
	c.data[k] = e
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt int64
	first := true
	for k, e := range c.data {
		if first || e.lastAccessMs < oldestAt {
			oldestKey = k
			oldestAt = e.lastAccessMs
			first = false
		}
	}
	if !first {
		delete(c.data, oldestKey)
	}
}

// GetOrFetch returns the cached value for k, or calls fetch once (even
// under concurrent callers for the same key) and caches the result under
// ttlMs on success. A fetch error is never cached and is returned to every
// waiter on that call.
func (c *Cache) GetOrFetch(k string, ttlMs int64, fetch func() (any, error)) (any, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(k); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(k, func() (any, error) {
		c.mu.Lock()
		if v, ok := c.getLocked(k); ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		fetched, ferr := fetch()
		if ferr != nil {
			return nil, ferr
		}
		c.mu.Lock()
		c.setLocked(k, fetched, ttlMs)
		c.mu.Unlock()
		return fetched, nil
	})
	return v, err
}

// Invalidate removes k from the cache.
func (c *Cache) Invalidate(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, k)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns a copy of the current hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
