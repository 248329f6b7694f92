package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps encoded values so readers never share mutable state with writers.
type MemoryCache struct {
	store  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, time.Minute)}
}

func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, found := c.store.Get(key)
	if !found {
		c.misses.Add(1)
		return false, nil
	}
	if err := json.Unmarshal(raw.([]byte), dest); err != nil {
		c.store.Delete(key)
		c.misses.Add(1)
		return false, err
	}
	c.hits.Add(1)
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, raw, ttl)
	return nil
}

func (c *MemoryCache) InvalidateAll(_ context.Context) error {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, SearchKeyPrefix) {
			c.store.Delete(key)
		}
	}
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) (Stats, error) {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Driver:  "memory",
		Keys:    c.store.ItemCount(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}, nil
}
