package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, limit int) *RedisLimiter {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, limit)
}

func TestRedisLimiterCountsWithinWindow(t *testing.T) {
	limiter := newTestRedisLimiter(t, 3)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "client-a")
		require.NoError(t, err)
		require.True(t, allowed, "request %d within limit", i)
	}

	allowed, err := limiter.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestRedisLimiterNewWindowResets(t *testing.T) {
	limiter := newTestRedisLimiter(t, 1)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	allowed, _ := limiter.Allow(context.Background(), "client-a")
	require.True(t, allowed)

	allowed, _ = limiter.Allow(context.Background(), "client-a")
	require.False(t, allowed)

	// The next second is a fresh counter key.
	now = now.Add(time.Second)
	allowed, _ = limiter.Allow(context.Background(), "client-a")
	require.True(t, allowed)
}

func TestRedisLimiterIsolatesClients(t *testing.T) {
	limiter := newTestRedisLimiter(t, 1)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	allowed, _ := limiter.Allow(context.Background(), "client-a")
	require.True(t, allowed)

	allowed, _ = limiter.Allow(context.Background(), "client-a")
	require.False(t, allowed)

	allowed, _ = limiter.Allow(context.Background(), "client-b")
	require.True(t, allowed)
}

func TestRedisLimiterFailsClosedOnBackendError(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter := NewRedisLimiter(client, 1)

	srv.Close()

	allowed, err := limiter.Allow(context.Background(), "client-a")
	require.Error(t, err)
	require.False(t, allowed)
}

func TestRedisLimiterCounterKeyExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRedisLimiter(client, 5)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	_, err := limiter.Allow(context.Background(), "client-a")
	require.NoError(t, err)

	// Stale window keys must not accumulate.
	srv.FastForward(3 * time.Second)
	require.Empty(t, srv.Keys())
}
