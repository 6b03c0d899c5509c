package service

import (
	"sync"
	"time"
)

// Fixed cache keys. Invalidation is conservative: any successful mutation
// clears every key, never just the one it touched.
const (
	cacheKeyProducts     = "products"
	cacheKeyEvents       = "events"
	cacheKeyStats        = "stats"
	cacheKeyParticipants = "participants"
)

type cacheEntry struct {
	data      any
	fetchedAt time.Time
}

// resultCache is a TTL-bound memo for ledger read results. Each entry is
// replaced atomically; readers either see a whole entry or a miss.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// get returns the cached value for key if it is still within the TTL window.
func (c *resultCache) get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.data, true
}

// put stores a value under key with the current fetch time.
func (c *resultCache) put(key string, data any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{data: data, fetchedAt: c.now()}
}

// invalidateAll drops every entry. Called synchronously after any successful
// mutation so the next read observes fresh ledger state.
func (c *resultCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// size returns the number of live entries, for metrics.
func (c *resultCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
