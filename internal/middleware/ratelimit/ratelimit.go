// Package ratelimit throttles HTTP requests per client IP.
package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"moneypall/internal/core"
	"moneypall/internal/limiter"
	"moneypall/internal/log"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60}
}

// Limiter wraps a per-key limiter with request accounting.
type Limiter struct {
	backend limiter.Limiter
	mem     *limiter.Memory
	logger  *log.Logger
	window  time.Duration

	totalHits int64
}

// NewLimiter builds an in-process token bucket per client IP.
func NewLimiter(config Config, logger *log.Logger) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Discard()
	}
	mem := limiter.NewMemory(limiter.Config{Limit: config.RequestsPerMinute, Window: time.Minute})
	return &Limiter{
		backend: mem,
		mem:     mem,
		logger:  logger.WithComponent(log.ComponentRateLimit),
		window:  time.Minute,
	}
}

// Allow checks if a request from the given IP should be allowed
func (rl *Limiter) Allow(r *http.Request, clientIP string) bool {
	err := rl.backend.Allow(r.Context(), clientIP)
	if err == nil {
		return true
	}
	if errors.Is(err, core.ErrRateLimited) {
		atomic.AddInt64(&rl.totalHits, 1)
		rl.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, clientIP,
			log.FieldPath, r.URL.Path)
		return false
	}
	rl.logger.ErrorContext(r.Context(), "Rate limiter failed", log.FieldError, err)
	return true
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.mem.Len()
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.mem.Stop()
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.totalHits),
		ClientCount: int64(rl.mem.Len()),
	}
}

// Middleware creates HTTP middleware for rate limiting. onLimit writes the
// rejection; Retry-After is already set when it runs.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r, extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
