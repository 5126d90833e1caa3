// ABOUTME: Retry policy and backoff state machine for transient API errors
// ABOUTME: Exponential delay with jitter, bounded attempts, context-aware sleep
package hubspot

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds retries of transient API failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Jitter returns the extra delay added to a computed backoff. Defaults
	// to a random fraction up to 25% of the delay.
	Jitter func(time.Duration) time.Duration
}

// DefaultRetryPolicy matches the compatibility scenarios: base 1s, factor 2,
// cap 30s, five retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// retryState tracks one request's attempts. Modeled as an explicit state
// machine so the control flow is testable without network calls.
type retryState struct {
	policy  RetryPolicy
	attempt int
}

func (p RetryPolicy) newState() *retryState {
	return &retryState{policy: p}
}

// Next returns the delay to wait before the next attempt and whether another
// attempt is allowed. The first call corresponds to the first retry.
func (s *retryState) Next() (time.Duration, bool) {
	if s.attempt >= s.policy.MaxRetries {
		return 0, false
	}

	delay := s.policy.BaseDelay << s.attempt
	if s.policy.MaxDelay > 0 && delay > s.policy.MaxDelay {
		delay = s.policy.MaxDelay
	}
	s.attempt++

	jitter := s.policy.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}
	return delay + jitter(delay), true
}

// Attempts returns how many retries have been consumed.
func (s *retryState) Attempts() int {
	return s.attempt
}

func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)/4 + 1))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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
