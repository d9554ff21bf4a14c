// Package cache keeps derived read models in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wolf-tap/internal/config"
	"wolf-tap/internal/model"
)

const leaderboardKey = "wolftap:leaderboard:top"

// Open creates a Redis client and pings it.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return c, nil
}

// snapshot is the stored form of a projected leaderboard.
type snapshot struct {
	Entries     []model.LeaderboardEntry `json:"entries"`
	ProjectedAt time.Time                `json:"projectedAt"`
}

// LeaderboardCache stores the last projected leaderboard with a TTL.
type LeaderboardCache struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

// NewLeaderboardCache creates a cache whose snapshots expire after ttl.
func NewLeaderboardCache(client redis.Cmdable, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, key: leaderboardKey, ttl: ttl}
}

// Store replaces the cached snapshot.
func (c *LeaderboardCache) Store(ctx context.Context, entries []model.LeaderboardEntry) error {
	data, err := json.Marshal(snapshot{Entries: entries, ProjectedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save leaderboard to redis: %w", err)
	}
	return nil
}

// Load returns the cached snapshot. A missing or expired key is not an error.
func (c *LeaderboardCache) Load(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get leaderboard from redis: %w", err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal leaderboard: %w", err)
	}
	if s.Entries == nil {
		s.Entries = []model.LeaderboardEntry{}
	}
	return s.Entries, true, nil
}

// Invalidate drops the cached snapshot.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
