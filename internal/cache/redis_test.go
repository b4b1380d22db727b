package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	c := NewRedisPageCacheWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer func() { _ = c.Close() }()

	key := c.Key("https://www.sega.co.jp/")
	assert.True(t, strings.HasPrefix(key, DefaultKeyPrefix))
	assert.Len(t, strings.TrimPrefix(key, DefaultKeyPrefix), 64)
	assert.Equal(t, key, c.Key("https://www.sega.co.jp/"))
	assert.NotEqual(t, key, c.Key("https://www.sega.com/"))
}

func TestKey_CustomPrefix(t *testing.T) {
	c := NewRedisPageCacheWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "test:")
	defer func() { _ = c.Close() }()

	assert.True(t, strings.HasPrefix(c.Key("u"), "test:"))
}

func TestNewRedisPageCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisPageCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

// Requires a running Redis; set TEST_REDIS_ADDR to run.
func TestRedisPageCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}

	ctx := context.Background()
	c, err := NewRedisPageCache(ctx, RedisConfig{Addr: addr, KeyPrefix: "company-updater-test:"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	url := "https://test.example.com/" + time.Now().Format(time.RFC3339Nano)

	_, ok, err := c.Get(ctx, url)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, url, "Founded in 1889.", time.Minute))

	text, ok, err := c.Get(ctx, url)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Founded in 1889.", text)
}
