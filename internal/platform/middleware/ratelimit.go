package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vetcare/practice/internal/platform/auth"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Skipper           func(c echo.Context) bool
}

// tokenBucket refills at rate tokens per second up to max.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	max    float64
	rate   float64
	last   time.Time
}

func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.last = now
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, int((1-b.tokens)/b.rate) + 1
}

// sweepInterval is how often bucket lookups prune idle callers.
const sweepInterval = time.Minute

type limiter struct {
	cfg       RateLimitConfig
	now       func() time.Time
	idleAfter time.Duration
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

// newLimiter evicts a caller once it has been idle long enough to refill
// completely, so a dropped bucket and a fresh one are indistinguishable.
func newLimiter(cfg RateLimitConfig, now func() time.Time) *limiter {
	idle := sweepInterval
	if cfg.RequestsPerSecond > 0 {
		idle = max(idle, time.Duration(float64(cfg.Burst)/cfg.RequestsPerSecond*float64(time.Second)))
	}
	return &limiter{cfg: cfg, now: now, idleAfter: idle, buckets: make(map[string]*tokenBucket), lastSweep: now()}
}

func (l *limiter) bucket(key string) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(l.cfg.Burst), max: float64(l.cfg.Burst), rate: l.cfg.RequestsPerSecond, last: now}
		l.buckets[key] = b
	}
	return b
}

// sweep drops idle buckets. The caller holds l.mu.
func (l *limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.last) >= l.idleAfter
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit applies a token bucket per caller: the authenticated user when
// there is one, else the client IP. A zero rate disables limiting.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) echo.MiddlewareFunc {
	l := newLimiter(cfg, now)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if cfg.RequestsPerSecond <= 0 {
			return next
		}
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			key := "ip:" + c.RealIP()
			if user := auth.UserIDFromContext(c.Request().Context()); user != "" {
				key = "user:" + user
			}

			c.Response().Header().Set("X-RateLimit-Limit", limit)
			ok, retryAfter := l.bucket(key).take(l.now())
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
