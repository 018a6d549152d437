package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/smallbiznis/enrollpay/internal/config"
)

const defaultIPEntries = 10000

type localBucket struct {
	mu     sync.Mutex
	tokens float64
	ts     time.Time
}

// IPLimiter is an in-process token bucket per client address. Buckets live
// in an expiring LRU so idle addresses are evicted.
type IPLimiter struct {
	enabled bool
	rate    float64
	burst   int
	now     func() time.Time
	buckets *expirable.LRU[string, *localBucket]
}

func NewIPLimiter(cfg config.Config) *IPLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || limitCfg.PublicIPRate <= 0 || limitCfg.PublicIPBurst <= 0 {
		return &IPLimiter{}
	}
	return newIPLimiter(limitCfg.PublicIPRate, limitCfg.PublicIPBurst, limitCfg.PublicIPEntries, time.Now)
}

func newIPLimiter(rate float64, burst int, entries int, now func() time.Time) *IPLimiter {
	if entries <= 0 {
		entries = defaultIPEntries
	}
	return &IPLimiter{
		enabled: true,
		rate:    rate,
		burst:   burst,
		now:     now,
		buckets: expirable.NewLRU[string, *localBucket](entries, nil, defaultBucketTTL(rate, burst)),
	}
}

func (l *IPLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *IPLimiter) Allow(ip string) RateLimitResult {
	if !l.Enabled() {
		return RateLimitResult{Allowed: true}
	}
	key := strings.TrimSpace(ip)
	now := l.now()

	bucket, ok := l.buckets.Get(key)
	if !ok {
		bucket = &localBucket{tokens: float64(l.burst), ts: now}
		l.buckets.Add(key, bucket)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	if elapsed := now.Sub(bucket.ts); elapsed > 0 {
		bucket.tokens = min(float64(l.burst), bucket.tokens+elapsed.Seconds()*l.rate)
	}
	bucket.ts = now

	allowed := bucket.tokens >= 1
	if allowed {
		bucket.tokens--
	}
	retryAfter := retryAfterFor(allowed, bucket.tokens, l.rate)
	return RateLimitResult{
		Allowed:    allowed,
		Limit:      l.burst,
		Remaining:  int(bucket.tokens),
		ResetTime:  now.Add(retryAfter),
		RetryAfter: retryAfter,
	}
}
