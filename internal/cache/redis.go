// Package cache provides the Redis-backed statistics cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/farmsight/apiserver/types"
	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "stats:user:"

// StatsCache stores per-user field-data statistics with a TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache connects to Redis using a redis:// URL.
func NewStatsCache(redisURL string, ttl time.Duration) (*StatsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &StatsCache{client: client, ttl: ttl}, nil
}

// NewStatsCacheWithClient wraps an existing Redis client.
func NewStatsCacheWithClient(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(userID int) string {
	return fmt.Sprintf("%s%d", statsKeyPrefix, userID)
}

// Get returns the cached stats for a user; the bool reports a hit.
func (c *StatsCache) Get(ctx context.Context, userID int) (types.FieldDataStats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.FieldDataStats{}, false, nil
		}
		return types.FieldDataStats{}, false, err
	}

	var stats types.FieldDataStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry behaves like a miss; it will be overwritten.
		return types.FieldDataStats{}, false, nil
	}
	return stats, true, nil
}

// Set stores the stats for a user with the configured TTL.
func (c *StatsCache) Set(ctx context.Context, userID int, stats types.FieldDataStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey(userID), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for a user.
func (c *StatsCache) Invalidate(ctx context.Context, userID int) error {
	return c.client.Del(ctx, statsKey(userID)).Err()
}

// Ping checks connectivity.
func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
