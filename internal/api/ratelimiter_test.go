package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/samraisbeck/MEDS/internal/status"
)

type staticLimiter struct {
	allow bool
	seen  []string
}

func (s *staticLimiter) Allow(client string) bool {
	s.seen = append(s.seen, client)
	return s.allow
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimitMiddlewareKeysByClientHost(t *testing.T) {
	limiter := &staticLimiter{allow: true}
	var called bool
	middleware := rateLimitMiddleware(limiter, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
	if len(limiter.seen) != 1 || limiter.seen[0] != "10.0.0.7" {
		t.Fatalf("expected client host key, got %v", limiter.seen)
	}
}

func TestClientLimiterIsolatesClients(t *testing.T) {
	limiter := newClientLimiter(0.001, 1)

	if !limiter.Allow("a") {
		t.Fatalf("expected first request from a to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected second request from a to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatalf("expected b to have its own bucket")
	}
}

func TestWithRateLimitZeroDisablesLimiting(t *testing.T) {
	router := NewRouter(NewHandler(status.NewMemoryStore()), zaptest.NewLogger(t),
		WithLogging(false),
		WithRateLimit(0, 0),
	)

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}
