package middleware

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/phrazzld/tome-api/internal/api/shared"
)

// SubmitRateLimiter applies a per-client token bucket to the routes it
// wraps. It protects the task queue from a single client flooding the
// mutating document endpoints; queue capacity itself is still enforced by
// the scheduler.
type SubmitRateLimiter struct {
	ratePerSecond rate.Limit
	burst         int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSubmitRateLimiter creates a limiter allowing ratePerSecond requests
// with the given burst per client. A non-positive rate disables limiting.
func NewSubmitRateLimiter(ratePerSecond, burst int) *SubmitRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &SubmitRateLimiter{
		ratePerSecond: rate.Limit(ratePerSecond),
		burst:         burst,
		limiters:      make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the client's limiter, creating it on first use.
// Clients are keyed by authenticated user id, falling back to remote
// address for unauthenticated requests.
func (l *SubmitRateLimiter) limiterFor(r *http.Request) *rate.Limiter {
	key := r.RemoteAddr
	if userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID); ok {
		key = userID.String()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.ratePerSecond, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

// Middleware wraps next with the rate limit, answering 429 once a client's
// bucket is drained.
func (l *SubmitRateLimiter) Middleware(next http.Handler) http.Handler {
	if l.ratePerSecond <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiterFor(r).Allow() {
			shared.RespondWithError(w, r, http.StatusTooManyRequests,
				"Too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
