// ABOUTME: Tests for the retry/backoff state machine
// ABOUTME: Covers exponential growth, cap, jitter hook, and attempt bounds
package hubspot

import (
	"testing"
	"time"
)

func noJitter(time.Duration) time.Duration { return 0 }

func TestBackoffProgression(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: noJitter}
	state := policy.newState()

	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, expected := range want {
		delay, ok := state.Next()
		if !ok {
			t.Fatalf("attempt %d: expected retry to be allowed", i)
		}
		if delay != expected {
			t.Errorf("attempt %d: expected %v, got %v", i, expected, delay)
		}
	}

	if _, ok := state.Next(); ok {
		t.Error("expected retries exhausted after MaxRetries")
	}
}

func TestBackoffCap(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: noJitter}
	state := policy.newState()

	var last time.Duration
	for {
		delay, ok := state.Next()
		if !ok {
			break
		}
		last = delay
		if delay > 30*time.Second {
			t.Fatalf("delay %v exceeds cap", delay)
		}
	}
	if last != 30*time.Second {
		t.Errorf("expected final delay at cap, got %v", last)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	policy := DefaultRetryPolicy()
	state := policy.newState()

	delay, ok := state.Next()
	if !ok {
		t.Fatal("expected first retry allowed")
	}
	// Default jitter adds at most 25% on top of the base delay.
	if delay < policy.BaseDelay || delay > policy.BaseDelay+policy.BaseDelay/4 {
		t.Errorf("first delay %v outside [1s, 1.25s]", delay)
	}
}

func TestBackoffScenarioThree429s(t *testing.T) {
	// Three transient failures then success: cumulative wait ≈ 1s+2s+4s.
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: noJitter}
	state := policy.newState()

	var total time.Duration
	for i := 0; i < 3; i++ {
		delay, ok := state.Next()
		if !ok {
			t.Fatalf("retry %d unexpectedly refused", i)
		}
		total += delay
	}
	if total != 7*time.Second {
		t.Errorf("expected 7s cumulative backoff, got %v", total)
	}
	if state.Attempts() != 3 {
		t.Errorf("expected 3 attempts consumed, got %d", state.Attempts())
	}
}
