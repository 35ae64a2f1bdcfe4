// Package retry re-sends board requests that timed out.
//
// Only timeouts are retried: the board either answers within its own
// processing time or is unreachable, and re-sending after any other
// failure would only add load to a device that may already be struggling.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smoothie-happy/clients"
)

// ErrRetryLimitExceeded indicates every allowed attempt timed out
var ErrRetryLimitExceeded = errors.New("retry limit exceeded")

// Policy holds retry configuration.
type Policy struct {
	MaxAttempts  int           // Maximum number of attempts, values below 1 mean 1
	AttemptDelay time.Duration // Fixed wait between two attempts
}

// DefaultPolicy returns the board defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		AttemptDelay: time.Second,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// LimitError is returned when the last allowed attempt timed out
type LimitError struct {
	Attempts int
	Last     error
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("retry limit exceeded after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last timeout
func (e *LimitError) Unwrap() error {
	return e.Last
}

// Is makes errors.Is(err, ErrRetryLimitExceeded) match
func (e *LimitError) Is(target error) bool {
	return target == ErrRetryLimitExceeded
}

// Sender executes one attempt, clients.Transport in production
type Sender interface {
	Execute(ctx context.Context, req *clients.Request) (*clients.Response, error)
}

// Hooks observes the retry lifecycle. Any field may be nil.
type Hooks struct {
	// Attempt is called right before every attempt, starting at 1
	Attempt func(attempt int)
	// BeforeRetry is called when a timed out attempt will be retried, before the delay
	BeforeRetry func(attempt int, delay time.Duration, err error)
	// Retry is called after the delay, right before the next attempt
	Retry func(attempt int)
	// RetryLimitExceeded is called when the last allowed attempt timed out
	RetryLimitExceeded func(attempts int, err error)
}

// Send executes requests built by newRequest until one succeeds, a
// non-timeout error occurs, or the policy runs out of attempts. A fresh
// request is built for every attempt. It also returns the number of
// attempts made.
func Send(ctx context.Context, s Sender, newRequest func() *clients.Request, p Policy, h Hooks) (*clients.Response, int, error) {
	maxAttempts := p.attempts()

	for attempt := 1; ; attempt++ {
		if h.Attempt != nil {
			h.Attempt(attempt)
		}

		resp, err := s.Execute(ctx, newRequest())
		if err == nil {
			return resp, attempt, nil
		}

		if !errors.Is(err, clients.ErrTimeout) {
			return nil, attempt, err
		}

		if attempt >= maxAttempts {
			if h.RetryLimitExceeded != nil {
				h.RetryLimitExceeded(attempt, err)
			}
			return nil, attempt, &LimitError{Attempts: attempt, Last: err}
		}

		if h.BeforeRetry != nil {
			h.BeforeRetry(attempt, p.AttemptDelay, err)
		}

		if err := wait(ctx, p.AttemptDelay); err != nil {
			return nil, attempt, err
		}

		if h.Retry != nil {
			h.Retry(attempt + 1)
		}
	}
}

// wait sleeps for d or until ctx is cancelled
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: retry delay interrupted", clients.ErrAborted)
	case <-timer.C:
		return nil
	}
}
