package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	delay := 100 * time.Millisecond
	backoff := NewConstantBackoff(delay)

	for i := 0; i < 10; i++ {
		nextDelay := backoff.NextDelay(i)
		if nextDelay != delay {
			t.Errorf("Attempt %d: expected %v, got %v", i, delay, nextDelay)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff(100*time.Millisecond, 1*time.Second, 2.0, false)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{10, 1 * time.Second},
	}

	for _, tt := range tests {
		delay := backoff.NextDelay(tt.attempt)
		if delay != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, delay)
		}
	}
}

func TestExponentialBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	backoff := NewExponentialBackoff(base, 10*time.Second, 2.0, true)

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(1)
		if delay < 100*time.Millisecond || delay >= 300*time.Millisecond {
			t.Fatalf("Jittered delay %v outside [100ms, 300ms)", delay)
		}
	}
}

func TestExponentialBackoffDefaultMultiplier(t *testing.T) {
	backoff := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 0, false)
	if backoff.Multiplier != 2.0 {
		t.Errorf("Expected default multiplier 2.0, got %f", backoff.Multiplier)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on a cancelled context")
	}
}
