package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/greenpen-app/worry-service/internal/app/system"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// RateLimiter applies a per-client token bucket at the transport layer. This
// is distinct from the 60s letter cooldown, which is a domain rule; the
// middleware only protects the service from request floods.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ system.Service = (*RateLimiter)(nil)

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained with
// the given burst, keyed by client IP.
func NewRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.limiterFor(key).Allow() {
			rl.log.WithField("client", key).
				WithField("path", r.URL.Path).
				Warn("request rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Name implements system.Service.
func (rl *RateLimiter) Name() string { return "http-ratelimit" }

// Start launches the periodic limiter map cleanup.
func (rl *RateLimiter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	rl.cancel = cancel

	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
	return nil
}

// Stop halts the cleanup goroutine.
func (rl *RateLimiter) Stop(ctx context.Context) error {
	if rl.cancel != nil {
		rl.cancel()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		rl.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cleanup drops the limiter map once it grows past a bound. Buckets refill in
// under a second, so forgetting idle clients is harmless.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
