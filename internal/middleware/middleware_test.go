package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_AllowAllAndPreflight(t *testing.T) {
	h := NewCORSMiddleware([]string{"*"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/listening", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/writing", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
}

func TestCORS_DisallowedOriginGetsNoHeaders(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.example.com"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/listening", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS headers for disallowed origin, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("request itself still passes through, got %d", rec.Code)
	}
}

func TestRateLimiter_Returns429WhenExhausted(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	h := rl.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/listening", nil)
	req.RemoteAddr = "10.0.0.1:50000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket is drained, got %d", rec.Code)
	}

	// A different client has its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/listening", nil)
	other.RemoteAddr = "10.0.0.2:50000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("separate client should pass, got %d", rec.Code)
	}
}

func TestRateLimiter_StartStop(t *testing.T) {
	rl := NewRateLimiter(5, 5, nil)
	ctx := context.Background()

	if err := rl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rl.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
