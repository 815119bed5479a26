// internal/repository/cache.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"organmatch/internal/common/logger"
	"organmatch/internal/common/metrics"
	"organmatch/internal/models"

	"github.com/redis/go-redis/v9"
)

const donorCachePrefix = "donors:organ:"

// CachedDonorSource keeps per-organ donor pools in redis. Redis failures are
// logged and bypassed so the cache never makes the pool unavailable.
type CachedDonorSource struct {
	next   DonorSource
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedDonorSource(next DonorSource, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedDonorSource {
	return &CachedDonorSource{next: next, redis: rdb, ttl: ttl, logger: log}
}

func CacheKey(organ string) string {
	return donorCachePrefix + organ
}

func (c *CachedDonorSource) DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error) {
	key := CacheKey(organ)

	val, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var donors []models.Donor
		if jsonErr := json.Unmarshal(val, &donors); jsonErr == nil {
			metrics.DonorPoolCache.WithLabelValues("hit").Inc()
			return donors, nil
		}
		c.logger.Warn("discarding corrupt donor cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("donor cache read failed", map[string]interface{}{"key": key, "error": err})
	}
	metrics.DonorPoolCache.WithLabelValues("miss").Inc()

	donors, err := c.next.DonorsByOrgan(ctx, organ)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(donors)
	if err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("donor cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}
	return donors, nil
}

// Invalidate drops the cached pools for the given organs.
func (c *CachedDonorSource) Invalidate(ctx context.Context, organs ...string) error {
	if len(organs) == 0 {
		return nil
	}
	keys := make([]string, len(organs))
	for i, o := range organs {
		keys[i] = CacheKey(o)
	}
	return c.redis.Del(ctx, keys...).Err()
}
