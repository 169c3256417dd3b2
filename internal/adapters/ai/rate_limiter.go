package ai

import (
	"context"

	"golang.org/x/time/rate"

	"minerva/pkg/errors"
)

// RateLimiter throttles outbound provider calls
type RateLimiter struct {
	limiter *rate.Limiter
	name    string
}

// NewRateLimiter creates a limiter allowing requestsPerMinute sustained calls
// with a burst of 10% of the per-minute limit.
func NewRateLimiter(name string, requestsPerMinute int) *RateLimiter {
	rps := float64(requestsPerMinute) / 60.0

	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows the request
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *RateLimiter) Allow() bool {
	return l.limiter.Allow()
}
