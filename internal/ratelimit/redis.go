// Package ratelimit provides per-client request rate limiting.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter with a fixed one-second window counter
// in Redis, shared across service instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a limiter allowing up to limit requests per
// client per second across all instances sharing the Redis database.
func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	if limit < 1 {
		limit = 1
	}

	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Allow increments the client's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := l.now().Unix()
	redisKey := l.prefix + key + ":" + strconv.FormatInt(window, 10)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= l.limit, nil
}

// Close closes the underlying Redis client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// Ensure RedisLimiter implements Limiter
var _ Limiter = (*RedisLimiter)(nil)
