package retry

import (
	"context"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the wait after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff waits BaseDelay * Multiplier^(attempt-1). There is no
// jitter; the same attempt always yields the same delay.
type ExponentialBackoff struct {
	// BaseDelay is the wait after the first failure
	BaseDelay time.Duration
	// MaxDelay caps the delay; zero means no cap
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
}

// NewExponentialBackoff returns a doubling backoff starting at base
func NewExponentialBackoff(base time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  base,
		Multiplier: 2.0,
	}
}

// NextDelay calculates the next delay
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= eb.Multiplier
		if eb.MaxDelay > 0 && delay >= float64(eb.MaxDelay) {
			return eb.MaxDelay
		}
	}

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		return eb.MaxDelay
	}
	return time.Duration(delay)
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
