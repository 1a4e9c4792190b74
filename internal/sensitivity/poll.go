package sensitivity

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

// DefaultPollInterval is the fixed delay between wait attempts while the
// execution service reports no active workers.
const DefaultPollInterval = 5 * time.Second

// Waiter is the blocking completion call of an execution service.
type Waiter interface {
	// WaitForDone blocks until every scheduled point has finished. It
	// returns ErrNoActiveWorkers (possibly wrapped) when nothing can run yet.
	WaitForDone(ctx context.Context) error
}

// PollOptions tunes WaitUntilDone. The zero value polls every
// DefaultPollInterval on the real clock and logs through monitoring.Logf.
type PollOptions struct {
	Interval time.Duration
	Clock    timeutil.Clock
	Logf     func(format string, v ...interface{})

	// OnRetry is called before each sleep with the 1-based attempt number.
	OnRetry func(attempt int)
}

// WaitUntilDone calls w.WaitForDone until it succeeds. ErrNoActiveWorkers is
// retried indefinitely after a fixed interval; any other error is returned
// unchanged after that call. Cancelling ctx stops the loop, including
// during the sleep, and returns the context error.
func WaitUntilDone(ctx context.Context, w Waiter, opts PollOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	logf := opts.Logf
	if logf == nil {
		logf = monitoring.Logf
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.WaitForDone(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoActiveWorkers) {
			return err
		}

		logf("No active simulation workers, waiting %s to try again (attempt %d)", interval, attempt)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(interval):
		}
	}
}
