package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.Discard())
	handler := rl.Handler(okHandler())

	request := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// the port does not matter, only the host
	if got := request("10.0.0.1:1000"); got != http.StatusOK {
		t.Fatalf("first request = %d", got)
	}
	if got := request("10.0.0.1:1001"); got != http.StatusOK {
		t.Fatalf("second request = %d", got)
	}
	if got := request("10.0.0.1:1002"); got != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", got)
	}
	if got := request("10.0.0.2:1000"); got != http.StatusOK {
		t.Fatalf("other client = %d", got)
	}
}

func TestRateLimiterKeysByActor(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Discard())
	handler := rl.Handler(okHandler())

	for i, actor := range []string{"alice", "bob"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: actor}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d for %s = %d", i, actor, rec.Code)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Discard())
	rl.getLimiter("stale")
	rl.getLimiter("fresh")
	rl.limiters["stale"].lastSeen = time.Now().Add(-time.Hour)

	rl.Cleanup()
	if _, ok := rl.limiters["stale"]; ok {
		t.Error("stale limiter kept")
	}
	if _, ok := rl.limiters["fresh"]; !ok {
		t.Error("fresh limiter removed")
	}
}

func TestLoggingMiddlewareTraceID(t *testing.T) {
	var seen string
	handler := LoggingMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(TraceHeader) != seen {
		t.Fatalf("trace id %q not propagated (header %q)", seen, rec.Header().Get(TraceHeader))
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc" {
		t.Errorf("incoming trace id replaced: %q", seen)
	}
}

func TestCORS(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://vybe.app", ".vybe.dev"})
	handler := m.Handler(okHandler())

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://vybe.app", true},
		{"https://staging.vybe.dev", true},
		{"https://evilvybe.app", false},
		{"https://vybe.dev.evil.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin") == tt.origin
		if got != tt.allowed {
			t.Errorf("%s: allowed = %v, want %v", tt.origin, got, tt.allowed)
		}
	}

	req := httptest.NewRequest(http.MethodOptions, "/v1/tips", nil)
	req.Header.Set("Origin", "https://vybe.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
}
