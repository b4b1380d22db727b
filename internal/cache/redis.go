// Package cache provides a Redis-backed store for extracted reference page text.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces page entries in a shared Redis.
const DefaultKeyPrefix = "company-updater:page:"

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr      string // e.g. localhost:6379
	Password  string
	DB        int
	KeyPrefix string
}

// RedisPageCache stores page text under hashed URL keys with a TTL.
type RedisPageCache struct {
	client *redis.Client
	prefix string
}

// NewRedisPageCache connects to Redis and verifies connectivity.
func NewRedisPageCache(ctx context.Context, cfg RedisConfig) (*RedisPageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisPageCacheWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisPageCacheWithClient wraps an existing client.
func NewRedisPageCacheWithClient(client *redis.Client, prefix string) *RedisPageCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisPageCache{client: client, prefix: prefix}
}

// Key returns the Redis key for a page URL.
func (c *RedisPageCache) Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns cached text for url. A missing key is a miss, not an error.
func (c *RedisPageCache) Get(ctx context.Context, url string) (string, bool, error) {
	text, err := c.client.Get(ctx, c.Key(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return text, true, nil
}

// Put stores text for url for ttl.
func (c *RedisPageCache) Put(ctx context.Context, url, text string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.Key(url), text, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (c *RedisPageCache) Close() error {
	return c.client.Close()
}
