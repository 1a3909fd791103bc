package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached document kinds.
const (
	KindPlayByPlay = "pbp"
	KindShiftChart = "shiftchart"
	KindReportHome = "report:home"
	KindReportAway = "report:away"
)

// DefaultTTL keeps raw documents for a week. Finished games do not change.
const DefaultTTL = 7 * 24 * time.Hour

// RedisCache stores raw upstream documents keyed by game
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// DocumentKey is the key a raw document is stored under.
func DocumentKey(kind string, gameID int64) string {
	return fmt.Sprintf("icetime:nhl:%s:%d", kind, gameID)
}

// GetDocument returns a cached document. A miss is not an error.
func (rc *RedisCache) GetDocument(ctx context.Context, kind string, gameID int64) ([]byte, bool, error) {
	body, err := rc.client.Get(ctx, DocumentKey(kind, gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s for game %d: %w", kind, gameID, err)
	}
	return body, true, nil
}

// PutDocument stores a raw document with the cache TTL.
func (rc *RedisCache) PutDocument(ctx context.Context, kind string, gameID int64, body []byte) error {
	if err := rc.client.Set(ctx, DocumentKey(kind, gameID), body, rc.ttl).Err(); err != nil {
		return fmt.Errorf("set %s for game %d: %w", kind, gameID, err)
	}
	return nil
}

// Invalidate removes every cached document of a game.
func (rc *RedisCache) Invalidate(ctx context.Context, gameID int64) error {
	keys := make([]string, 0, 4)
	for _, kind := range []string{KindPlayByPlay, KindShiftChart, KindReportHome, KindReportAway} {
		keys = append(keys, DocumentKey(kind, gameID))
	}
	return rc.client.Del(ctx, keys...).Err()
}
