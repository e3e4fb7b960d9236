package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL drops buckets not touched for this long. Zero keeps them forever.
	IdleTTL time.Duration
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *tokenBucket) retryAfter() int {
	if b.refillRate <= 0 {
		return 1
	}
	return int((1-b.tokens)/b.refillRate) + 1
}

type limiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	cfg       RateLimitConfig
	now       func() time.Time
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{buckets: make(map[string]*tokenBucket), cfg: cfg, now: time.Now}
}

// take reports whether key may proceed and, if not, how many seconds to wait.
func (l *limiter) take(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{
			tokens:     float64(l.cfg.BurstSize),
			maxTokens:  float64(l.cfg.BurstSize),
			refillRate: l.cfg.RequestsPerSecond,
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	if b.allow(now) {
		return true, 0
	}
	return false, b.retryAfter()
}

func (l *limiter) sweep(now time.Time) {
	if l.cfg.IdleTTL <= 0 || now.Sub(l.lastSweep) < l.cfg.IdleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > l.cfg.IdleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// RateLimit limits requests per client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	l := newLimiter(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-RateLimit-Limit", limit)

			ok, retryAfter := l.take(c.RealIP())
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
					"message": "rate limit exceeded",
					"code":    "RATE_LIMITED",
				})
			}
			return next(c)
		}
	}
}
