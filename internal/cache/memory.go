package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = 5 * time.Minute

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 10 * time.Minute

// MemoryCache implements Cache with github.com/patrickmn/go-cache.
// Used when Redis is not configured or unreachable.
type MemoryCache struct {
	cache *goCache.Cache
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: goCache.New(DefaultExpiration, DefaultCleanupInterval)}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set adds a value to the cache with the specified expiration
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}
