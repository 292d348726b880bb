// Package ratelimit provides the fixed-window counters behind the public
// endpoints. The counter store is injected so tests and multi-instance
// deployments can swap the process-local map for Redis without touching
// call sites.
package ratelimit

import (
	"context"

	"waitlist-server/internal/observability"
)

// Counter counts events per key within a fixed window.
type Counter interface {
	// Increment bumps the counter for key and returns the count inside the
	// current window, including this call.
	Increment(ctx context.Context, key string) (int, error)
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// Limiter applies a max-per-window policy on top of a Counter.
type Limiter struct {
	counter Counter
	max     int
	logger  *observability.Logger
}

func NewLimiter(counter Counter, max int, logger *observability.Logger) *Limiter {
	return &Limiter{counter: counter, max: max, logger: logger}
}

// Allow records one request for key and reports whether it is within the
// cap. A failing counter store fails open: this is a soft limiter, and
// dropping a legitimate signup over a counter outage is the worse trade.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	count, err := l.counter.Increment(ctx, key)
	if err != nil {
		l.logger.Error(ctx, "rate limit counter unavailable, allowing request", err)
		return true
	}
	return count <= l.max
}

// Count records one event for key and returns the window count. Used by the
// observational invalid-attempt counter, which never blocks.
func (l *Limiter) Count(ctx context.Context, key string) (int, bool) {
	count, err := l.counter.Increment(ctx, key)
	if err != nil {
		l.logger.Error(ctx, "attempt counter unavailable", err)
		return 0, false
	}
	return count, count > l.max
}

// Max returns the configured per-window cap.
func (l *Limiter) Max() int {
	return l.max
}
