package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("@every 30s")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(30*time.Second), s.Next(base))

	s, err = ParseSchedule("*/5 * * * *")
	require.NoError(t, err)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))

	_, err = ParseSchedule("every now and then")
	assert.Error(t, err)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	loop := NewLoop(everySchedule(5*time.Millisecond), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx, func(context.Context) error {
			if calls.Add(1) == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunStopsDuringWait(t *testing.T) {
	loop := NewLoop(everySchedule(time.Hour), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx, func(context.Context) error {
			close(started)
			return nil
		})
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop kept waiting after cancel")
	}
}

func TestNextDelayBacksOffAndResets(t *testing.T) {
	loop := NewLoop(everySchedule(time.Millisecond), 10*time.Minute, nil)
	b := loop.newBackOff()
	boom := errors.New("api down")

	first := loop.nextDelay(boom, b)
	loop.nextDelay(boom, b)
	third := loop.nextDelay(boom, b)

	assert.GreaterOrEqual(t, first, initialBackoff/2)
	assert.Greater(t, third, first)

	assert.Equal(t, time.Millisecond, loop.nextDelay(nil, b))

	again := loop.nextDelay(boom, b)
	assert.LessOrEqual(t, again, initialBackoff*3/2)
}

func TestNextDelayNeverShorterThanSchedule(t *testing.T) {
	loop := NewLoop(everySchedule(time.Hour), 10*time.Minute, nil)
	b := loop.newBackOff()

	assert.Equal(t, time.Hour, loop.nextDelay(errors.New("x"), b))
}
