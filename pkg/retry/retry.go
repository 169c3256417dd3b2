package retry

import (
	"context"
	"math"
	"net"
	"strings"
	"time"

	"minerva/pkg/errors"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // Exponential backoff multiplier
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Policy wraps fallible operations with bounded exponential backoff
type Policy struct {
	config Config
}

// New creates a new retry policy
func New(config Config) *Policy {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}

	return &Policy{config: config}
}

// Do executes fn with retry logic and returns the number of retries actually
// used, so callers can record it in invocation metadata.
//
// A permanently failing operation is attempted exactly MaxRetries+1 times.
// Non-retryable errors (validation, not-found, context cancellation) stop the
// loop immediately and are returned unchanged.
func (p *Policy) Do(ctx context.Context, fn func() error) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return attempt, err
		}

		// Don't sleep after the last attempt
		if attempt == p.config.MaxRetries {
			break
		}

		delay := p.delayFor(attempt)

		select {
		case <-ctx.Done():
			return attempt, errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(delay):
		}
	}

	return p.config.MaxRetries, errors.Wrapf(lastErr, "max retries (%d) exceeded", p.config.MaxRetries)
}

// DoWithResult executes fn with retry logic and returns its result along with
// the number of retries used.
func DoWithResult[T any](ctx context.Context, p *Policy, fn func() (T, error)) (T, int, error) {
	var result T
	retries, err := p.Do(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, retries, err
	}
	return result, retries, nil
}

// delayFor computes the exponential backoff delay for a given attempt:
// delay = initial * (multiplier ^ attempt), capped at MaxDelay.
func (p *Policy) delayFor(attempt int) time.Duration {
	delay := time.Duration(float64(p.config.InitialDelay) * math.Pow(p.config.Multiplier, float64(attempt)))
	if delay > p.config.MaxDelay {
		delay = p.config.MaxDelay
	}
	return delay
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Validation and lookup failures never resolve themselves
	if errors.Is(err, errors.ErrInvalidInput) || errors.Is(err, errors.ErrNotFound) {
		return false
	}
	if errors.Is(err, errors.ErrTicketClosed) || errors.Is(err, errors.ErrAlreadyAssigned) ||
		errors.Is(err, errors.ErrAgentAtCapacity) || errors.Is(err, errors.ErrAgentInactive) {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Explicitly transient failures
	if errors.Is(err, errors.ErrDownstream) || errors.Is(err, errors.ErrUnavailable) ||
		errors.Is(err, errors.ErrTimeout) || errors.Is(err, errors.ErrRateLimitExceeded) {
		return true
	}

	// Network errors are generally retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// Check for well-known transient error messages
	errStr := strings.ToLower(err.Error())
	retryableMessages := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
		"throttled",
	}

	for _, msg := range retryableMessages {
		if strings.Contains(errStr, msg) {
			return true
		}
	}

	return false
}
