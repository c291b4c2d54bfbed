package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"cv-tailor/internal/shared/metrics"
	"cv-tailor/internal/shared/server/respond"
)

// Rate limit groups used by the router.
const (
	RateGroupGenerate = "GENERATE"
	RateGroupFetch    = "FETCH"
	RateGroupImport   = "IMPORT"
)

const (
	defaultRateLimitGroup = "DEFAULT"
	maxTrackedBuckets     = 10000
	bucketIdleAfter       = 30 * time.Minute
)

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) unlimited() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

type bucketKey struct {
	principal string
	group     string
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter holds one bucket per caller and group. Buckets idle for
// longer than bucketIdleAfter are dropped once the table grows large.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*rateBucket
	now     func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: make(map[bucketKey]*rateBucket),
		now:     now,
	}
}

// RateLimit throttles requests per caller. Groups without a rule pass through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		key := bucketKey{principal: callerKey(c), group: group}
		wait, allowed := cfg.Limiter.take(key, rule)
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited()
		waitMs := wait.Milliseconds()
		if waitMs <= 0 {
			waitMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt(ceilSeconds(waitMs), 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
			"retryAfterMs": waitMs,
			"group":        group,
		})
	}
}

// callerKey identifies the caller: the resolved user or guest id, else the client address.
func callerKey(c *gin.Context) string {
	if id := strings.TrimSpace(UserIDFromContext(c)); id != "" {
		return id
	}
	return "ip:" + strings.TrimSpace(c.ClientIP())
}

func ceilSeconds(ms int64) int64 {
	s := int64(math.Ceil(float64(ms) / 1000))
	if s < 1 {
		return 1
	}
	return s
}

// Allow reports whether key may proceed under rule, and otherwise how long to wait.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	wait, ok := l.take(bucketKey{principal: key}, rule)
	return ok, wait
}

func (l *RateLimiter) take(key bucketKey, rule RateLimitRule) (time.Duration, bool) {
	if l == nil || rule.unlimited() {
		return 0, true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedBuckets {
			l.pruneLocked(now)
		}
		b = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	waitSec := (1 - b.tokens) / rule.Rate
	return time.Duration(math.Ceil(waitSec*1000)) * time.Millisecond, false
}

// Prune drops buckets untouched for bucketIdleAfter and returns how many were removed.
func (l *RateLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now())
}

func (l *RateLimiter) pruneLocked(now time.Time) int {
	removed := 0
	for k, b := range l.buckets {
		if now.Sub(b.last) >= bucketIdleAfter {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}
