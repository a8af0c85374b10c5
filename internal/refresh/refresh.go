// Package refresh runs a cycle function on a cron schedule, slowing down
// with jittered exponential backoff while cycles keep failing.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
)

const initialBackoff = 5 * time.Second

// Schedule yields the next activation after a given time. cron.Schedule
// satisfies it.
type Schedule interface {
	Next(time.Time) time.Time
}

// ParseSchedule accepts "@every <duration>", the other cron descriptors,
// or a standard 5-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Loop repeats a cycle until its context is cancelled.
type Loop struct {
	schedule   Schedule
	maxBackoff time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewLoop creates a loop. maxBackoff bounds the delay after failures.
func NewLoop(schedule Schedule, maxBackoff time.Duration, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Minute
	}
	return &Loop{
		schedule:   schedule,
		maxBackoff: maxBackoff,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes cycle immediately and then after every delay, until ctx is
// done. It returns ctx's error.
func (l *Loop) Run(ctx context.Context, cycle func(context.Context) error) error {
	b := l.newBackOff()
	for {
		err := cycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := l.nextDelay(err, b)
		if err != nil {
			l.logger.Warn("refresh cycle failed, backing off", "error", err, "retry_in", wait.Round(time.Millisecond))
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

func (l *Loop) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialBackoff
	b.Multiplier = 2
	b.MaxInterval = l.maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// nextDelay is the regular schedule gap after a success. After a failure
// it is the backoff delay, never shorter than the regular gap.
func (l *Loop) nextDelay(err error, b backoff.BackOff) time.Duration {
	now := l.now()
	regular := max(l.schedule.Next(now).Sub(now), 0)

	if err == nil {
		b.Reset()
		return regular
	}

	d := b.NextBackOff()
	if d == backoff.Stop {
		return regular
	}
	return max(d, regular)
}
