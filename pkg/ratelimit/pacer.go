package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces out sequential requests. Every gap is Normal unless Escalate
// was called since the previous gap, in which case that one gap is
// Escalated. The escalation does not carry over to later gaps.
type Pacer struct {
	Normal    time.Duration
	Escalated time.Duration

	// Sleep performs the wait; tests replace it to observe delays
	Sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	escalated bool
}

// NewPacer creates a pacer with the given normal and escalated gaps
func NewPacer(normal, escalated time.Duration) *Pacer {
	return &Pacer{
		Normal:    normal,
		Escalated: escalated,
		Sleep:     sleep,
	}
}

// Escalate makes the next gap use the escalated delay
func (p *Pacer) Escalate() {
	p.mu.Lock()
	p.escalated = true
	p.mu.Unlock()
}

// Next returns the upcoming gap and consumes a pending escalation
func (p *Pacer) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.escalated {
		p.escalated = false
		return p.Escalated
	}
	return p.Normal
}

// Pace waits for the next gap
func (p *Pacer) Pace(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	s := p.Sleep
	if s == nil {
		s = sleep
	}
	return d, s(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
