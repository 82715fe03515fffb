// Package cache stores short-lived derived data such as dashboard stats.
// A miss is never an error; callers recompute.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value cache.
type Cache interface {
	// Get returns the value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Dashboard stats keys.
const statsKeyFmt = "dashboard:stats:%s"
