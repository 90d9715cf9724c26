// Package cache implements the two Cache variants spec.md 4.15 and 9's
// open question call for: TTLCache, a plain TTL+LRU map with no clock
// injection or singleflight protection, and Cache, the clock-injected,
// singleflight-backed variant used wherever concurrent getOrFetch calls
// must collapse to one fetch. Neither has a direct teacher equivalent —
// the teacher has no cache layer at all — so both are built fresh with
// Result-free simple accessors since cache misses are not error conditions.
// Only Cache takes an injected clock; TTLCache reads the system wall clock.
package cache

import "time"

// Stats is hit/miss bookkeeping.
type Stats struct {
	Hits    int64
	Misses  int64
}

// HitRate returns hits/(hits+misses), or 0 with no recorded accesses.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type ttlEntry struct {
	value      any
	expiresAt  time.Time
	hasExpiry  bool
	lastAccess time.Time
}

// TTLCache is a plain, non-concurrent-safe TTL+LRU cache using the
// system wall clock directly. Intended for single-goroutine call sites
// (the tick thread) where singleflight protection is unnecessary.
type TTLCache struct {
	maxSize int
	data    map[string]*ttlEntry
	stats   Stats
}

// NewTTLCache builds a cache bounded to maxSize entries; maxSize<=0 means
// unbounded.
func NewTTLCache(maxSize int) *TTLCache {
	return &TTLCache{maxSize: maxSize, data: make(map[string]*ttlEntry)}
}

// Get returns the value for k if present and unexpired; expired entries
// are evicted on access.
func (c *TTLCache) Get(k string) (any, bool) {
	e, ok := c.data[k]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if e.hasExpiry && !time.Now().Before(e.expiresAt) {
		delete(c.data, k)
		c.stats.Misses++
		return nil, false
	}
	e.lastAccess = time.Now()
	c.stats.Hits++
	return e.value, true
}

// Set stores v under k with an optional ttl (ttl<=0 means no expiry),
// evicting the oldest-accessed entry first if the cache is full and k is
// new.
func (c *TTLCache) Set(k string, v any, ttl time.Duration) {
	if _, exists := c.data[k]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.evictOldest()
	}
	e := &ttlEntry{value: v, lastAccess: time.Now()}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = time.Now().Add(ttl)
	}
	c.data[k] = e
}

func (c *TTLCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.data {
		if first || e.lastAccess.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.lastAccess
			first = false
		}
	}
	if !first {
		delete(c.data, oldestKey)
	}
}

// Len returns the current entry count, including not-yet-evicted expired
// entries.
func (c *TTLCache) Len() int { return len(c.data) }

// Stats returns a copy of the current hit/miss counters.
func (c *TTLCache) Stats() Stats { return c.stats }
