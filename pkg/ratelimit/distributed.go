package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedLimiter implements fixed-window rate limiting using Redis.
// This allows quotas to be shared across multiple instances. The INCR is
// atomic on the Redis side, so concurrent bursts against one key cannot
// undercount.
type DistributedLimiter struct {
	redis    *redis.Client
	profiles map[Category]Profile
	prefix   string
	// failOpen allows requests through on Redis errors to prevent a cache
	// outage from taking the whole API down with it
	failOpen bool
}

// NewDistributedLimiter creates a Redis-backed limiter with the given profiles
func NewDistributedLimiter(redisClient *redis.Client, profiles map[Category]Profile) *DistributedLimiter {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &DistributedLimiter{
		redis:    redisClient,
		profiles: profiles,
		prefix:   "ratelimit",
		failOpen: true,
	}
}

// SetFailOpen controls whether to allow (true) or reject (false) on Redis errors
func (l *DistributedLimiter) SetFailOpen(failOpen bool) {
	l.failOpen = failOpen
}

// Allow increments the window counter for (key, category) and reports whether
// the call is within quota
func (l *DistributedLimiter) Allow(ctx context.Context, key string, category Category) (Decision, error) {
	profile, ok := l.profiles[category]
	if !ok {
		return Decision{}, fmt.Errorf("unknown rate limit category: %s", category)
	}

	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, category, key)

	incr := l.redis.Incr(ctx, redisKey)
	if err := incr.Err(); err != nil {
		if l.failOpen {
			return Decision{Allowed: true, Limit: profile.Limit}, nil
		}
		return Decision{}, fmt.Errorf("redis error: %w", err)
	}

	count := int(incr.Val())

	// Arm the window TTL only on the first call so later calls in the same
	// window cannot extend it.
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, profile.Window).Err(); err != nil && !l.failOpen {
			return Decision{}, fmt.Errorf("redis error: %w", err)
		}
	}
	if count > profile.Limit {
		retryAfter := profile.Window
		if ttl, err := l.redis.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return Decision{
			Allowed:    false,
			Limit:      profile.Limit,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     profile.Limit,
		Remaining: profile.Limit - count,
	}, nil
}

// Reset clears the window for a key (for testing or admin purposes)
func (l *DistributedLimiter) Reset(ctx context.Context, key string, category Category) error {
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, category, key)
	return l.redis.Del(ctx, redisKey).Err()
}

// HealthCheck verifies Redis connectivity for rate limiting
func (l *DistributedLimiter) HealthCheck(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

// WindowTTL returns the time until the window for a key resets
func (l *DistributedLimiter) WindowTTL(ctx context.Context, key string, category Category) (time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s:%s", l.prefix, category, key)
	return l.redis.TTL(ctx, redisKey).Result()
}
