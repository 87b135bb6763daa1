package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
)

// LoginThrottle counts failed logins per username in Redis.
// Key format: login:fail:<username>
//
// The first failure starts a lockout window; once maxFailures is reached the
// username stays blocked until the key expires or a successful login resets it.
// Requires Redis 7 for EXPIRE NX.
type LoginThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	lockout     time.Duration
}

// NewLoginThrottle creates a LoginThrottle. Non-positive limits fall back to
// five failures per fifteen minutes.
func NewLoginThrottle(client redis.Cmdable, maxFailures int64, lockout time.Duration) *LoginThrottle {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginThrottle{client: client, maxFailures: maxFailures, lockout: lockout}
}

// Blocked reports whether username has reached the failure limit.
func (t *LoginThrottle) Blocked(ctx context.Context, username string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("login throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the failure counter for username. INCR and
// EXPIRE NX go out in one transaction, so a counter left without a TTL by an
// earlier failed call gets one on the next failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	key := t.key(username)
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, t.lockout)
		return nil
	})
	if err != nil {
		return fmt.Errorf("login throttle record: %w", err)
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if err := t.client.Del(ctx, t.key(username)).Err(); err != nil {
		return fmt.Errorf("login throttle reset: %w", err)
	}
	return nil
}

func (t *LoginThrottle) key(username string) string {
	return "login:fail:" + username
}
