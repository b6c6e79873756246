package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yenharbor/payment-core/internal/application"
)

// RedisLimiter shares one counter per key across instances using
// INCR + EXPIRE. When Redis is unreachable it fails open: blocking payment
// notifications because the counter store is down would cost real money.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *slog.Logger
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		logger: logger,
	}
}

var _ application.RateLimiter = (*RedisLimiter)(nil)

func (l *RedisLimiter) Allow(ctx context.Context, key string) application.Decision {
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, failing open", "error", err)
		return application.Decision{Allowed: true, Remaining: l.limit}
	}

	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}

	if count > int64(l.limit) {
		retryAfter := l.window
		if ttl, err := l.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return application.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
		}
	}

	return application.Decision{
		Allowed:   true,
		Remaining: l.limit - int(count),
	}
}
