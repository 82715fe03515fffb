package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

// StatsTTL bounds how stale dashboard stats can be if an invalidation is missed.
const StatsTTL = 2 * time.Minute

// StatsCache stores DashboardStats per owner on top of a Cache.
type StatsCache struct {
	cache Cache
	ttl   time.Duration
}

// NewStatsCache wraps c. A zero ttl means StatsTTL.
func NewStatsCache(c Cache, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = StatsTTL
	}
	return &StatsCache{cache: c, ttl: ttl}
}

func statsKey(ownerID uuid.UUID) string {
	return fmt.Sprintf(statsKeyFmt, ownerID)
}

// Get returns cached stats for the owner.
func (s *StatsCache) Get(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardStats, bool) {
	data, ok := s.cache.Get(ctx, statsKey(ownerID))
	if !ok {
		return nil, false
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

// Put stores stats for the owner.
func (s *StatsCache) Put(ctx context.Context, ownerID uuid.UUID, stats *domain.DashboardStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	s.cache.Set(ctx, statsKey(ownerID), data, s.ttl)
}

// Invalidate drops the owner's stats.
func (s *StatsCache) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	s.cache.Delete(ctx, statsKey(ownerID))
}
