package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestBackoffDoubles(t *testing.T) {
	base := 100 * time.Millisecond
	wants := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, want := range wants {
		if got := Backoff(base, i); got != want {
			t.Errorf("Backoff(base, %d) = %v, want %v", i, got, want)
		}
	}
}

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	ctx := context.Background()

	start := time.Now()
	// Burst capacity of 2 should pass immediately.
	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst Waits took %v, want near-immediate", elapsed)
	}

	// Third call must wait roughly one token interval (100ms at 10/s).
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("third Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("third Wait returned after %v, expected a rate-limit delay", elapsed)
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(0.5, 1)
	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(cctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait with expiring context returned %v, want deadline exceeded", err)
	}
}

func TestIntervalLimiterSpacing(t *testing.T) {
	il := NewIntervalLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := il.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	// First call is immediate, then two full intervals.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three Waits took %v, want >= 80ms", elapsed)
	}
}

func TestIntervalLimiterDisabled(t *testing.T) {
	il := NewIntervalLimiter(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := il.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled limiter should not delay, took %v", elapsed)
	}
}
