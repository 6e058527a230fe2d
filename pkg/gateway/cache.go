package gateway

import (
	"sync"
	"time"
)

// TTLCache is a short-lived cache for target pointers, manifests, and
// domain mappings. A stale hit is bounded purely by the TTL — the protocol
// has no read-after-write consistency requirement for end users, so serving
// a pointer a few seconds old is a deliberate trade-off, not a bug. A miss
// behaves exactly like a fresh resolution.
//
// The clock is injected so expiry is testable without sleeping.
type TTLCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewTTLCache creates a cache with the given TTL. A nil clock uses
// time.Now. A zero or negative TTL disables caching entirely.
func NewTTLCache(ttl time.Duration, now func() time.Time) *TTLCache {
	if now == nil {
		now = time.Now
	}
	return &TTLCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache) Get(key string) (any, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for one TTL.
func (c *TTLCache) Set(key string, value any) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistically shed expired entries so the map does not grow
	// without bound between deploys.
	if len(c.entries) > 0 && len(c.entries)%512 == 0 {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}
