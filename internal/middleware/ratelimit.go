package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a per-key token bucket.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int

	// IdleExpiry drops a key's limiter after this long without requests.
	IdleExpiry time.Duration

	// KeyFunc picks the bucket for a request. Defaults to GetClientIP.
	KeyFunc func(r *http.Request) string
}

// DefaultRateLimiterConfig is applied to every route.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{RequestsPerSecond: 10, BurstSize: 20, IdleExpiry: time.Minute}
}

// StrictRateLimiterConfig guards login and register against guessing.
func StrictRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 5, IdleExpiry: time.Minute}
}

// RateLimiter keeps one rate.Limiter per key in a go-cache, so idle keys
// expire without a sweeper of our own.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
	mu       sync.Mutex
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = GetClientIP
	}
	if config.IdleExpiry <= 0 {
		config.IdleExpiry = time.Minute
	}

	return &RateLimiter{
		config:   config,
		limiters: gocache.New(config.IdleExpiry, 2*config.IdleExpiry),
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
	}
	rl.limiters.SetDefault(key, l)
	return l.(*rate.Limiter)
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).AllowN(rl.now(), 1)
}

// Middleware answers 429 with Retry-After once a key's bucket is empty.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(1/rl.config.RequestsPerSecond))))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.config.KeyFunc(r)) {
			w.Header().Set("Retry-After", retryAfter)
			respondTooManyRequests(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit creates a rate limiting middleware with the given config
func RateLimit(config RateLimiterConfig) func(http.Handler) http.Handler {
	return NewRateLimiter(config).Middleware
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote host.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
