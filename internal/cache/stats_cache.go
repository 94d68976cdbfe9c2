package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "learntrack:stats:"

// StatsCache is a read-through Redis cache for summary record payloads.
// A nil *StatsCache is valid and disables caching; all methods degrade
// to misses or no-ops, and Redis errors are logged, never propagated.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache creates a summary cache, or nil when addr is empty
func NewStatsCache(addr, password string, ttl time.Duration) *StatsCache {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	return &StatsCache{client: client, ttl: ttl}
}

// Ping verifies the Redis connection
func (c *StatsCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns the cached summary payload for a session, if present
func (c *StatsCache) Get(ctx context.Context, sessionID string) (string, bool) {
	if c == nil {
		return "", false
	}

	payload, err := c.client.Get(ctx, statsKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("Stats cache get failed for session %s: %v", sessionID, err)
		return "", false
	}

	return payload, true
}

// Set stores the summary payload for a session with the configured TTL
func (c *StatsCache) Set(ctx context.Context, sessionID, payload string) {
	if c == nil {
		return
	}

	if err := c.client.Set(ctx, statsKeyPrefix+sessionID, payload, c.ttl).Err(); err != nil {
		log.Printf("Stats cache set failed for session %s: %v", sessionID, err)
	}
}

// Invalidate drops the cached summary for a session
func (c *StatsCache) Invalidate(ctx context.Context, sessionID string) {
	if c == nil {
		return
	}

	if err := c.client.Del(ctx, statsKeyPrefix+sessionID).Err(); err != nil {
		log.Printf("Stats cache invalidate failed for session %s: %v", sessionID, err)
	}
}

// Close releases the Redis client
func (c *StatsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
