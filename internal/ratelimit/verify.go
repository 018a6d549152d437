package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/enrollpay/internal/config"
)

const keyVerifyUser = "payments:verify:user:%s"

// VerifyLimiter throttles user-initiated verification per user across replicas.
type VerifyLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewVerifyLimiter(cfg config.Config, client redis.Cmdable) (*VerifyLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return &VerifyLimiter{}, nil
	}
	if limitCfg.VerifyUserRate <= 0 || limitCfg.VerifyUserBurst <= 0 {
		return nil, fmt.Errorf("verify rate limit must be positive")
	}
	return &VerifyLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.VerifyUserRate,
		burst:   limitCfg.VerifyUserBurst,
	}, nil
}

func (l *VerifyLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *VerifyLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyVerifyUser, strings.TrimSpace(userID)), l.rate, l.burst)
}
