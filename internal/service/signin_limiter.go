package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSignInThrottled    = errors.New("too many failed sign-in attempts")
	ErrLimiterUnavailable = errors.New("sign-in limiter unavailable")
)

// SignInLimiterConfig bounds failed attempts per identifier.
type SignInLimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// SignInLimiter counts failed sign-ins per identifier in Redis.
type SignInLimiter struct {
	redis  redis.UniversalClient
	config SignInLimiterConfig
}

// NewSignInLimiter constructs the limiter. A nil client disables throttling.
func NewSignInLimiter(client redis.UniversalClient, cfg SignInLimiterConfig) *SignInLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	return &SignInLimiter{redis: client, config: cfg}
}

// Check fails with ErrSignInThrottled once the identifier used up its attempts.
func (l *SignInLimiter) Check(ctx context.Context, identifier string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, signInKey(identifier)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrSignInThrottled
	}
	return nil
}

// RecordFailure counts a failed attempt; the window starts at the first failure.
func (l *SignInLimiter) RecordFailure(ctx context.Context, identifier string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	key := signInKey(identifier)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
	return nil
}

// Reset clears the counter after a successful sign-in.
func (l *SignInLimiter) Reset(ctx context.Context, identifier string) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if err := l.redis.Del(ctx, signInKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func signInKey(identifier string) string {
	return "signin:fail:" + strings.ToLower(strings.TrimSpace(identifier))
}
