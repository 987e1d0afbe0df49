package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/tome-api/internal/api/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID uuid.UUID) *http.Request {
	req := httptest.NewRequest("POST", "/api/documents", nil)
	if userID != uuid.Nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func TestSubmitRateLimiter_AllowsWithinBurst(t *testing.T) {
	t.Parallel()

	limiter := NewSubmitRateLimiter(1, 3)
	handler := limiter.Middleware(okHandler())
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, requestAs(userID))
		assert.Equal(t, http.StatusOK, recorder.Code, "request %d should pass", i+1)
	}
}

func TestSubmitRateLimiter_RejectsBeyondBurst(t *testing.T) {
	t.Parallel()

	limiter := NewSubmitRateLimiter(1, 2)
	handler := limiter.Middleware(okHandler())
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, requestAs(userID))
		assert.Equal(t, http.StatusOK, recorder.Code)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(userID))
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
}

func TestSubmitRateLimiter_IsolatesClients(t *testing.T) {
	t.Parallel()

	limiter := NewSubmitRateLimiter(1, 1)
	handler := limiter.Middleware(okHandler())

	first := uuid.New()
	second := uuid.New()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(first))
	assert.Equal(t, http.StatusOK, recorder.Code)

	// First client's bucket is drained; the second client is unaffected.
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(first))
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(second))
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSubmitRateLimiter_DisabledWhenRateNonPositive(t *testing.T) {
	t.Parallel()

	limiter := NewSubmitRateLimiter(0, 1)
	handler := limiter.Middleware(okHandler())
	userID := uuid.New()

	for i := 0; i < 10; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, requestAs(userID))
		assert.Equal(t, http.StatusOK, recorder.Code)
	}
}

func TestSubmitRateLimiter_FallsBackToRemoteAddr(t *testing.T) {
	t.Parallel()

	limiter := NewSubmitRateLimiter(1, 1)
	handler := limiter.Middleware(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(uuid.Nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Same remote address shares the bucket.
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, requestAs(uuid.Nil))
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
}
