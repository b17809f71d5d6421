// Package guard protects the anonymous validation endpoint against
// brute-force token probing.
package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "throttle:validate:"

// ValidationThrottle applies a fixed-window attempt limit per caller key,
// backed by Redis INCR+EXPIRE. It fails open: when Redis is unreachable the
// request is allowed and the error is logged, so a cache outage never blocks
// legitimate exam access.
type ValidationThrottle struct {
	client *redis.Client
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewValidationThrottle builds a throttle. A nil client disables throttling.
func NewValidationThrottle(client *redis.Client, logger *zap.Logger, limit int, window time.Duration) *ValidationThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Hour
	}
	return &ValidationThrottle{client: client, logger: logger, limit: limit, window: window}
}

// Allow records one attempt for the key and reports whether the caller is
// still under the limit for the current window.
func (t *ValidationThrottle) Allow(ctx context.Context, key string) bool {
	if t == nil || t.client == nil || key == "" {
		return true
	}

	redisKey := keyPrefix + key
	count, err := t.client.Incr(ctx, redisKey).Result()
	if err != nil {
		t.logger.Warn("throttle unavailable, allowing request", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := t.client.Expire(ctx, redisKey, t.window).Err(); err != nil {
			t.logger.Warn("throttle expire failed", zap.Error(err))
		}
	}

	if count > int64(t.limit) {
		t.logger.Warn("validation attempts throttled",
			zap.String("key", key),
			zap.Int64("count", count),
		)
		return false
	}
	return true
}
