package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// AttemptLimiter counts failed sign-ins per identifier in a fixed window.
// Key format: signin:attempts:<identifier>
type AttemptLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewAttemptLimiter wraps the given Redis client. Non-positive limits fall
// back to 5 attempts per 15 minutes.
func NewAttemptLimiter(client *redis.Client, maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &AttemptLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether another sign-in attempt is permitted.
func (l *AttemptLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(identifier)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("attempts check: %w", err)
	}
	return n < l.maxAttempts, nil
}

// Fail records a failed attempt. The window starts with the first failure.
func (l *AttemptLimiter) Fail(ctx context.Context, identifier string) error {
	key := l.key(identifier)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("attempts incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("attempts expire: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (l *AttemptLimiter) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, l.key(identifier)).Err()
}

func (l *AttemptLimiter) key(identifier string) string {
	return "signin:attempts:" + strings.ToLower(strings.TrimSpace(identifier))
}
