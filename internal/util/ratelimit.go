package util

import (
	"context"
	"sync"
	"time"
)

// Limiter gates outbound requests. Implementations must be safe for
// concurrent use and must never deny a caller permanently.
type Limiter interface {
	// Wait blocks until the caller may proceed or the context is cancelled.
	Wait(ctx context.Context) error
}

// RateLimiter is a token-bucket limiter shared across all concurrent
// callers: at most perSecond requests per second on average, with a small
// burst allowance.
type RateLimiter struct {
	rate     float64 // tokens per second
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a RateLimiter allowing perSecond requests per
// second with the given burst capacity. Non-positive arguments are clamped
// to usable minimums.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:     perSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(rl.last).Seconds()
		if elapsed > 0 {
			rl.tokens += elapsed * rl.rate
			if rl.tokens > rl.capacity {
				rl.tokens = rl.capacity
			}
			rl.last = now
		}
		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		deficit := 1 - rl.tokens
		rl.mu.Unlock()

		wait := time.Duration(deficit / rl.rate * float64(time.Second))
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// IntervalLimiter enforces a fixed minimum delay between consecutive calls.
// Concurrent callers are queued: each reserves the next free slot, so calls
// proceed exactly one interval apart.
type IntervalLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewIntervalLimiter creates an IntervalLimiter with the given minimum delay
// between calls. A non-positive interval disables the limiter.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval}
}

// Wait blocks until the reserved slot arrives or the context is cancelled.
func (il *IntervalLimiter) Wait(ctx context.Context) error {
	if il.interval <= 0 {
		return ctx.Err()
	}

	il.mu.Lock()
	now := time.Now()
	at := il.next
	if at.Before(now) {
		at = now
	}
	il.next = at.Add(il.interval)
	il.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
