package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a Redis-backed fixed-window rate limiter. Counters
// are shared across instances, so the limit holds for the whole
// deployment rather than per process.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	rate      int
	window    time.Duration
}

// RedisConfig holds Redis rate limiter configuration.
type RedisConfig struct {
	// Client is the Redis client to use.
	Client redis.Cmdable

	// KeyPrefix is the prefix for all rate limit keys.
	// Defaults to "dishcovery:ratelimit:".
	KeyPrefix string

	// Rate is the number of requests allowed per window.
	Rate int

	// Window is the time window for the rate limit.
	Window time.Duration
}

// NewRedisLimiter creates a new Redis-backed rate limiter.
func NewRedisLimiter(cfg *RedisConfig) *RedisLimiter {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "dishcovery:ratelimit:"
	}

	return &RedisLimiter{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
		rate:      cfg.Rate,
		window:    cfg.Window,
	}
}

// allowScript increments the window counter atomically and sets the
// expiry only when the counter is created, so the window does not
// slide on every hit.
var allowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	if count > tonumber(ARGV[2]) then
		return 0
	end
	return 1
`)

// Allow checks if a request is allowed for the given key.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := allowScript.Run(ctx, r.client,
		[]string{r.keyPrefix + key},
		r.window.Milliseconds(),
		r.rate,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit script failed: %w", err)
	}
	return result == 1, nil
}

// Reset resets the rate limit for the given key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}

// Close is a no-op; the client is managed by the caller.
func (r *RedisLimiter) Close() error {
	return nil
}
