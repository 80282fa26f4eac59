// Package ratelimit throttles API callers with one token bucket per caller.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clide7029/MagicProxyAPp/internal/metrics"
)

const (
	DefaultPerWindow = 30
	DefaultWindow    = time.Minute

	// GlobalKey buckets callers that carry no address header together
	GlobalKey = "global"

	maxTrackedCallers = 10000
)

// Limiter allows each caller a burst of perWindow requests, refilled
// continuously so an idle caller is back at the full allowance after one
// window. Buckets never hold more than perWindow tokens.
type Limiter struct {
	mu        sync.Mutex
	buckets   *lru.Cache[string, *rate.Limiter]
	perWindow int
	window    time.Duration
	now       func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, letting tests move time without sleeping
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithWindow sets the allowance and the time it takes to refill completely
func WithWindow(perWindow int, window time.Duration) Option {
	return func(l *Limiter) {
		if perWindow > 0 {
			l.perWindow = perWindow
		}
		if window > 0 {
			l.window = window
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		perWindow: DefaultPerWindow,
		window:    DefaultWindow,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	// only fails for a non-positive size
	l.buckets, _ = lru.New[string, *rate.Limiter](maxTrackedCallers)
	return l
}

// Allow takes one token from the caller's bucket and reports whether there was one
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).AllowN(l.now(), 1)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	every := l.window / time.Duration(l.perWindow)
	b := rate.NewLimiter(rate.Every(every), l.perWindow)
	l.buckets.Add(key, b)
	return b
}

// CallerKey identifies the caller by the first X-Forwarded-For entry, then
// X-Real-IP, falling back to GlobalKey
func CallerKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return GlobalKey
}

// Middleware rejects throttled callers with 429
func (l *Limiter) Middleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerKey(c.Request)
		if !l.Allow(key) {
			metrics.RateLimitedTotal.Inc()
			logger.Debug("rate limit exceeded", zap.String("caller", key), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
