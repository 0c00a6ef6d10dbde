// Package retry runs an action a bounded number of times with a fixed delay
// between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ErrMaxAttempts is appended to the error list when every attempt failed
var ErrMaxAttempts = errors.New("max attempts exceeded")

// Policy bounds an operation to MaxAttempts tries, waiting Delay between
// consecutive failed attempts. The wait is a fixed interval with no jitter.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	sleep   func(time.Duration)
	onRetry func(attempt int, err error)
}

// Option allows customizing a Policy
type Option func(*Policy)

// WithSleep replaces the function used to wait between attempts
func WithSleep(sleep func(time.Duration)) Option {
	return func(p *Policy) {
		p.sleep = sleep
	}
}

// WithNotify registers a callback invoked after every failed attempt
func WithNotify(fn func(attempt int, err error)) Option {
	return func(p *Policy) {
		p.onRetry = fn
	}
}

// New creates a Policy. A maxAttempts below 1 is treated as 1.
func New(maxAttempts int, delay time.Duration, opts ...Option) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}

	p := &Policy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Error is returned when every attempt failed. It holds the error of each
// attempt in order, followed by ErrMaxAttempts.
type Error struct {
	Attempts int
	errs     []error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, multierr.Combine(e.errs...))
}

// Errors returns the accumulated errors; its length is Attempts+1
func (e *Error) Errors() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// Unwrap exposes every accumulated error to errors.Is and errors.As
func (e *Error) Unwrap() []error {
	return e.Errors()
}

// Last returns the error of the final attempt
func (e *Error) Last() error {
	if len(e.errs) < 2 {
		return nil
	}
	return e.errs[len(e.errs)-2]
}

// IsExhausted reports whether err is a retry exhaustion error
func IsExhausted(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// Do calls fn until it succeeds or the policy's attempts are used up.
// The attempt number passed to fn starts at 1. The wait between attempts
// is not interrupted by ctx; fn observes ctx itself.
func Do[T any](ctx context.Context, p *Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if p == nil {
		p = New(1, 0)
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var errs []error
	for attempt := 1; ; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}

		errs = append(errs, err)
		if p.onRetry != nil {
			p.onRetry(attempt, err)
		}

		if attempt >= p.MaxAttempts {
			var zero T
			return zero, &Error{
				Attempts: attempt,
				errs:     append(errs, ErrMaxAttempts),
			}
		}

		sleep(p.Delay)
	}
}

// Run is Do for actions that return only an error
func (p *Policy) Run(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	_, err := Do(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}
