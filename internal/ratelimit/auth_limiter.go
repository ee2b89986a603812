// Package ratelimit puts a shared Redis token bucket in front of the auth
// endpoints. Everything degrades to pass-through when Redis is not
// configured; credential stuffing protection is not worth an outage.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ledgerly/internal/config"
)

const keyAuthAttempt = "auth:attempt:%s"

type AuthLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewAuthLimiter returns nil when rate limiting is disabled; callers treat
// a nil limiter as always-allow.
func NewAuthLimiter(cfg config.Config) (*AuthLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.AuthRate <= 0 || limitCfg.AuthBurst <= 0 {
		return nil, errors.New("auth rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &AuthLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.AuthRate,
		burst:   limitCfg.AuthBurst,
	}, nil
}

func (l *AuthLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one attempt for the given key, typically the client
// address. Denied results carry a retry-after hint.
func (l *AuthLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAuthAttempt, strings.TrimSpace(key)), l.rate, l.burst)
}

// RetryAfterSeconds rounds the hint up to whole seconds for the
// Retry-After response header.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
