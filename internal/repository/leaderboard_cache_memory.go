package repository

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
	hasTTL    bool
}

func (e cacheEntry) isExpired() bool {
	return e.hasTTL && time.Now().After(e.expiresAt)
}

type memoryLeaderboardCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewMemoryLeaderboardCache() LeaderboardCache {
	return &memoryLeaderboardCache{
		entries: make(map[string]cacheEntry),
	}
}

func (c *memoryLeaderboardCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.hasTTL = true
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *memoryLeaderboardCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.isExpired() {
		if ok && entry.isExpired() {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return nil, nil
	}
	return entry.value, nil
}
