package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrAlreadyRegistered is returned when a ready waiter already exists for an id
	ErrAlreadyRegistered = errors.New("ready waiter already registered")
	// ErrNotRegistered is returned when waiting on an id nobody registered
	ErrNotRegistered = errors.New("ready waiter not registered")
)

// WaitResult is the outcome of waiting for a ready signal
type WaitResult int

const (
	// Settled means the print surface signalled readiness
	Settled WaitResult = iota
	// TimedOut means no signal arrived in time; callers proceed anyway
	TimedOut
)

func (r WaitResult) String() string {
	if r == Settled {
		return "settled"
	}
	return "timed_out"
}

type waiter struct {
	ch    chan struct{}
	fired bool
}

// Registry pairs ready signals from print views with the operation waiting
// for them. Each id holds a single slot. A signal that arrives before Wait is
// kept until the slot is released.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{waiters: make(map[string]*waiter)}
}

// Register opens a slot for id
func (r *Registry) Register(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.waiters[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	r.waiters[id] = &waiter{ch: make(chan struct{})}
	return nil
}

// Signal marks id as ready. It reports whether a slot existed; signals for
// unknown ids are dropped.
func (r *Registry) Signal(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.waiters[id]
	if !ok {
		return false
	}
	if !w.fired {
		w.fired = true
		close(w.ch)
	}
	return true
}

// Wait blocks until id is signalled or timeout elapses. Cancellation of ctx
// is returned as an error; an elapsed timeout is not.
func (r *Registry) Wait(ctx context.Context, id string, timeout time.Duration) (WaitResult, error) {
	r.mu.Lock()
	w, ok := r.waiters[id]
	r.mu.Unlock()
	if !ok {
		return TimedOut, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.ch:
		return Settled, nil
	case <-timer.C:
		return TimedOut, nil
	case <-ctx.Done():
		return TimedOut, ctx.Err()
	}
}

// Release frees the slot for id
func (r *Registry) Release(id string) {
	r.mu.Lock()
	delete(r.waiters, id)
	r.mu.Unlock()
}

// Pending returns the number of open slots
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
