package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles run requests per course.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	limiters sync.Map // course ID -> *cachedLimiter
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithTTL sets how long an idle course keeps its limiter.
func WithTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithLimit sets the sustained rate and burst per course. A zero limit
// disables throttling.
func WithLimit(limit rate.Limit, burst int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.limit = limit
		rl.burst = burst
	}
}

// NewRateLimiter defaults to one run per course every ten seconds with a
// burst of three.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Every(10 * time.Second),
		burst: 3,
		ttl:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware keys limiters by the course_id path value, so it must wrap a
// handler registered on a pattern that has one.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			courseID := r.PathValue("course_id")
			if courseID == "" {
				writeError(w, "Missing course ID", http.StatusBadRequest)
				return
			}

			if rl.limit > 0 && !rl.limiterFor(courseID).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (rl *RateLimiter) limiterFor(courseID string) *rate.Limiter {
	if cached, ok := rl.limiters.Load(courseID); ok {
		entry := cached.(*cachedLimiter)
		if time.Now().Before(entry.expiresAt) {
			return entry.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Store(courseID, &cachedLimiter{
		limiter:   limiter,
		expiresAt: time.Now().Add(rl.ttl),
	})
	return limiter
}
