// Package urlcache caches presigned retrieval URLs so listing pages don't
// pay one signing round-trip per image. Entries expire ahead of the signing
// expiry, so a cached URL is always still valid when served.
package urlcache

import (
	"context"
	"sync"
	"time"
)

// Cache stores short-lived retrieval URLs keyed by storage key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

type memoryEntry struct {
	url       string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when Redis isn't configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an in-process URL cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		c.Invalidate(ctx, key)
		return "", false
	}
	return entry.url, true
}

func (c *MemoryCache) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{url: url, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
