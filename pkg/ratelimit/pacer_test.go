package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPacer(normal, escalated time.Duration) (*Pacer, *[]time.Duration) {
	var got []time.Duration
	p := NewPacer(normal, escalated)
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	}
	return p, &got
}

func TestPacerEscalationIsOneShot(t *testing.T) {
	p, got := recordingPacer(300*time.Millisecond, 2*time.Second)
	ctx := context.Background()

	_, err := p.Pace(ctx)
	require.NoError(t, err)
	p.Escalate()
	_, err = p.Pace(ctx)
	require.NoError(t, err)
	_, err = p.Pace(ctx)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{300 * time.Millisecond, 2 * time.Second, 300 * time.Millisecond}, *got)
}

func TestPacerRepeatedEscalateCollapses(t *testing.T) {
	p, _ := recordingPacer(time.Millisecond, time.Second)
	p.Escalate()
	p.Escalate()

	assert.Equal(t, time.Second, p.Next())
	assert.Equal(t, time.Millisecond, p.Next())
}

func TestPacerRealSleepHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := p.Pace(ctx)
	assert.Equal(t, time.Hour, d)
	assert.ErrorIs(t, err, context.Canceled)
}
