// Package ratelimit throttles outbound requests on top of golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by all callers of one upstream.
type Limiter struct {
	limiter *rate.Limiter
}

// NewWithBurst creates a limiter allowing requestsPerSecond with the given
// burst. A non-positive rate disables throttling.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or the context is done. It fails
// fast when the context deadline would pass before a token frees up.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may go out now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
