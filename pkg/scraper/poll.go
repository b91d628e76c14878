package scraper

import "time"

// PollState is the state of a loading poll
type PollState int

const (
	Polling PollState = iota
	Settled
	TimedOut
)

func (s PollState) String() string {
	switch s {
	case Settled:
		return "settled"
	case TimedOut:
		return "timed_out"
	default:
		return "polling"
	}
}

// Poll tracks one wait for loading indicators to clear. Once it leaves
// Polling its state no longer changes.
type Poll struct {
	start   time.Time
	timeout time.Duration
	state   PollState
}

// NewPoll starts a poll at start that gives up after timeout
func NewPoll(start time.Time, timeout time.Duration) *Poll {
	return &Poll{start: start, timeout: timeout}
}

// Observe feeds one loading probe taken at now into the poll
func (p *Poll) Observe(loading bool, now time.Time) PollState {
	if p.state != Polling {
		return p.state
	}
	switch {
	case !loading:
		p.state = Settled
	case now.Sub(p.start) > p.timeout:
		p.state = TimedOut
	}
	return p.state
}

// State returns the current state
func (p *Poll) State() PollState {
	return p.state
}
