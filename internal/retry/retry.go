// Package retry runs an operation under a bounded exponential backoff policy
// on top of cenkalti/backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how often and how patiently an operation is retried.
// Attempts are strictly sequential.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first (>= 1).
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay between attempts (2 doubles it).
	Multiplier float64

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// Retryable classifies errors. A nil classifier retries nothing.
	Retryable func(error) bool

	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts waiting 1s then 2s.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    8 * time.Second,
		Retryable:   retryable,
	}
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Delay returns the wait after the given failed attempt (1-based):
// BaseDelay × Multiplier^(attempt-1), capped by MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	b := p.backOff()
	var d time.Duration
	for range max(attempt, 1) {
		d = b.NextBackOff()
	}
	return d
}

// backOff builds the jitter-free exponential schedule described by p.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          max(p.Multiplier, 1),
		MaxInterval:         maxDelay,
	}
	b.Reset()
	return b
}

// Do calls fn until it succeeds, returns a non-retryable error, the context
// is done, or MaxAttempts is reached.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := max(p.MaxAttempts, 1)

	attempts := 0
	var lastErr error
	operation := func() (T, error) {
		attempts++
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if p.Retryable == nil || !p.Retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, delay time.Duration) {
			p.OnRetry(attempts, delay, err)
		}))
	}

	result, err := backoff.Retry(ctx, operation, opts...)
	if err == nil {
		return result, nil
	}

	var permanent *backoff.PermanentError
	switch {
	case errors.As(err, &permanent):
		return zero, permanent.Unwrap()
	case ctx.Err() != nil && attempts < maxAttempts:
		return zero, fmt.Errorf("retry interrupted after %d attempts: %w", attempts, errors.Join(ctx.Err(), lastErr))
	default:
		return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
	}
}
