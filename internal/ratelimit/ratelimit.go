// Package ratelimit provides an explicit, caller-owned rate limiter for
// outbound API calls (embedding backends, Google Drive).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerMinute is the sustained limit. Zero disables the limit.
	RequestsPerMinute int

	// MinInterval is the minimum spacing between two requests. Zero disables it.
	MinInterval time.Duration

	// DefaultBackoff is used when a rate limit response carries no Retry-After.
	DefaultBackoff time.Duration
}

// DefaultConfig mirrors the limits of the hosted chat front-end:
// eight requests per minute, four seconds apart.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 8,
		MinInterval:       4 * time.Second,
		DefaultBackoff:    60 * time.Second,
	}
}

// RateLimiter throttles requests with token buckets and honours backoff
// periods recorded after 429 responses. A RateLimiter is owned by its
// caller; there is no process-wide instance.
type RateLimiter struct {
	mu       sync.Mutex
	perMin   *rate.Limiter
	interval *rate.Limiter
	retryAt  time.Time
	backoff  time.Duration
	now      func() time.Time
}

// New creates a rate limiter from cfg.
func New(cfg Config) *RateLimiter {
	r := &RateLimiter{
		backoff: cfg.DefaultBackoff,
		now:     time.Now,
	}
	if r.backoff <= 0 {
		r.backoff = 60 * time.Second
	}
	if cfg.RequestsPerMinute > 0 {
		r.perMin = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}
	if cfg.MinInterval > 0 {
		r.interval = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return r
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *RateLimiter {
	return New(Config{})
}

// Wait blocks until a request can be made without exceeding the limits.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	now := r.now()
	r.mu.Unlock()

	if now.Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAt.Sub(now)):
		}
	}

	if r.interval != nil {
		if err := r.interval.Wait(ctx); err != nil {
			return err
		}
	}
	if r.perMin != nil {
		return r.perMin.Wait(ctx)
	}
	return nil
}

// Allow reports whether a request can be made immediately.
// A true result consumes a token.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	now := r.now()
	r.mu.Unlock()

	if now.Before(retryAt) {
		return false
	}
	if r.interval != nil && r.interval.Tokens() < 1 {
		return false
	}
	if r.perMin != nil && !r.perMin.Allow() {
		return false
	}
	if r.interval != nil {
		return r.interval.Allow()
	}
	return true
}

// RecordRateLimitError sets a backoff period after a 429 response.
// A non-positive retryAfter uses the configured default backoff.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = r.backoff
	}
	r.retryAt = r.now().Add(retryAfter)
}

// RetryAt returns the end of the current backoff period, zero if none was recorded.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}
