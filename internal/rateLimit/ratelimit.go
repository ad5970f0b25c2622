package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/boa-platform/registration-ledger/internal/adapters/redis"
	"github.com/boa-platform/registration-ledger/internal/observability"
)

// RateLimiter is a fixed-window counter in redis. Registration submits are
// bursty around seminar announcements; the limiter protects the DB pool, not
// fairness.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		// Fail open: a redis outage must not block registrations.
		return true
	}

	if incr.Val() > int64(rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
