// Package ratelimit throttles sensitive endpoints (login, password reset) per
// client key. The memory limiter serves a single process; the Redis limiter is
// shared between replicas.
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
