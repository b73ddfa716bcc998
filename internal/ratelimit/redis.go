package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed window counter: the first hit in a window creates
// the key with the window as its TTL.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	limit  int
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, window: window, limit: limit}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := fmt.Sprintf("%s:%s", r.prefix, key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if int(count) <= r.limit {
		return Result{Allowed: true, Remaining: r.limit - int(count)}, nil
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// key lost its expiry; put it back so the client is not locked out forever
		_ = r.client.Expire(ctx, k, r.window).Err()
		ttl = r.window
	}
	return Result{Allowed: false, RetryAfter: ttl}, nil
}
