package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creddit.dev/creddit/internal/httpx"
)

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(1), "запрос %d должен пройти", i+1)
	}
	assert.False(t, rl.Allow(1), "четвёртый запрос сверх лимита")
}

func TestRateLimiter_PerAgentWindows(t *testing.T) {
	// Лимит считается на агента: исчерпание окна одним не трогает другого.

	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	require.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)
	defer rl.Close()

	require.True(t, rl.Allow(1))
	require.False(t, rl.Allow(1))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, rl.Allow(1), "после истечения окна запрос должен пройти")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(withAgent bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/agents/me", nil)
		if withAgent {
			req = req.WithContext(httpx.WithAgentID(req.Context(), 1))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Без агента в контексте — 401
	assert.Equal(t, http.StatusUnauthorized, doRequest(false).Code)

	// Первый запрос агента проходит, второй упирается в лимит
	assert.Equal(t, http.StatusOK, doRequest(true).Code)

	rec := doRequest(true)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")
}
