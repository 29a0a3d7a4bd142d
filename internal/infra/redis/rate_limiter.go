package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow counts one request for key. When the limit is exceeded it returns
// false and how long until the window resets. A counter left without an
// expiry gets the window re-applied, so a key never stays blocked.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.limit <= 0 {
		return true, 0, nil
	}
	count, ttl, err := r.client.IncrTTL(ctx, key)
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			return false, 0, err
		}
		ttl = r.window
	}
	if count > int64(r.limit) {
		return false, ttl, nil
	}
	return true, 0, nil
}

func ClientKey(route, client string) string {
	return fmt.Sprintf("rate_limit:%s:%s", route, client)
}
