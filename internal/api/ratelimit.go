package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per actor. Actors come from the
// configured token set, so the bucket map stays bounded.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter creates a per-actor limiter.
// reqPerSec is the sustained rate, burst is the maximum burst size.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(reqPerSec),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(actor string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[actor]
	if !ok {
		l = rate.NewLimiter(rl.rps, rl.burst)
		rl.limiters[actor] = l
	}
	return l
}

// Allow reports whether actor may make a request now.
func (rl *RateLimiter) Allow(actor string) bool {
	return rl.limiter(actor).Allow()
}

// Middleware enforces the limit for the authenticated actor. It must run
// after AuthMiddleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := MustActorFromContext(r.Context())
		if !rl.Allow(actor) {
			w.Header().Set("Retry-After", "1")
			WriteProblem(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
