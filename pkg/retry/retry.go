// Package retry decides whether a failed remote call is attempted again and
// how long to wait first. The delay is fixed, not exponential.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/kerbaras/mangadl/pkg/config"
)

// Policy allows up to MaxAttempts calls with a fixed Delay between them.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Retryable narrows which errors are retried. Nil retries every error.
	Retryable func(error) bool
}

type Decision struct {
	Retry bool
	Delay time.Duration
}

// FromConfig builds the uniform policy described by cfg.
func FromConfig(cfg config.Config) Policy {
	cfg = cfg.Normalize()
	return Policy{
		MaxAttempts: cfg.RetryCount,
		Delay:       cfg.RetryDelay(),
	}
}

// ShouldRetry is called after attempt number attempt (1-based) failed with err.
func (p Policy) ShouldRetry(attempt int, err error) Decision {
	if err == nil {
		return Decision{}
	}
	if p.Retryable != nil && !p.Retryable(err) {
		return Decision{}
	}
	if attempt >= p.MaxAttempts {
		return Decision{}
	}
	return Decision{Retry: true, Delay: p.Delay}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OnRetry observes a failed attempt that is about to be retried.
type OnRetry func(attempt int, err error, delay time.Duration)

// Do runs fn until it succeeds, the policy gives up or ctx is cancelled.
// Cancellation is never retried.
func Do[T any](ctx context.Context, p Policy, sleep Sleeper, onRetry OnRetry, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		}

		d := p.ShouldRetry(attempt, err)
		if !d.Retry {
			return zero, fmt.Errorf("failed after %d attempt(s): %w", attempt, err)
		}
		if onRetry != nil {
			onRetry(attempt, err, d.Delay)
		}
		if err := sleep(ctx, d.Delay); err != nil {
			return zero, err
		}
	}
}
