package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"coi-backend/internal/shared/telemetry"
)

// RateLimiter keeps one token bucket per client IP. The bucket holds a
// minute's budget and refills evenly across the minute.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*rate.Limiter
	now     func() time.Time
}

// NewRateLimiter allows perMinute requests per client. A non-positive budget
// returns nil, which lets every request through.
func NewRateLimiter(perMinute int, now func() time.Time) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		clients: make(map[string]*rate.Limiter),
		now:     now,
	}
}

// Allow takes a token for key and reports how long to wait when none is left.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	lim, ok := l.clients[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.clients[key] = lim
	}
	l.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit rejects requests over the limiter's budget with 429 and Retry-After.
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.ClientIP())
		allowed, wait := l.Allow(key)
		if allowed {
			c.Next()
			return
		}
		seconds := int(math.Ceil(wait.Seconds()))
		if seconds <= 0 {
			seconds = 1
		}
		telemetry.Warn("http.rate_limited", map[string]any{
			"client_ip":   key,
			"path":        c.FullPath(),
			"retry_after": seconds,
		})
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many requests, retry later.",
			"code":  "rate_limited",
		})
	}
}
