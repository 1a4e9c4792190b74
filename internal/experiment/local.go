package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

// LocalOptions configures a Local experiment.
type LocalOptions struct {
	// Workers is the number of simulation workers started with the
	// experiment. Zero starts none, so WaitForDone reports
	// ErrNoActiveWorkers until workers are started.
	Workers int
	Clock   timeutil.Clock
	Logf    func(format string, v ...interface{})
}

// Local is an Experiment executed in-process against a Store.
type Local struct {
	id    string
	store *Store
	pool  *Pool
	clock timeutil.Clock
	logf  func(format string, v ...interface{})
}

var _ Experiment = (*Local)(nil)

// CreateLocal persists rec as a new experiment and opens it.
func CreateLocal(ctx context.Context, store *Store, rec *Record, sim Simulation, opts LocalOptions) (*Local, error) {
	if err := store.Create(ctx, rec); err != nil {
		return nil, err
	}
	return OpenLocal(ctx, store, rec.ExperimentID, sim, opts)
}

// OpenLocal opens a stored experiment, returns points left running by an
// earlier process to pending and starts opts.Workers workers.
func OpenLocal(ctx context.Context, store *Store, id string, sim Simulation, opts LocalOptions) (*Local, error) {
	if _, err := store.Get(ctx, id); err != nil {
		return nil, err
	}
	l := &Local{
		id:    id,
		store: store,
		pool:  NewPool(store, id, sim),
		clock: opts.Clock,
		logf:  opts.Logf,
	}
	if l.clock == nil {
		l.clock = timeutil.RealClock{}
	}
	if l.logf == nil {
		l.logf = monitoring.Prefixed("experiment")
	}

	released, err := store.ReleaseRunning(ctx, id)
	if err != nil {
		return nil, err
	}
	if released > 0 {
		l.logf("Released %d interrupted points of %s", released, id)
	}
	l.pool.Start(opts.Workers)
	return l, nil
}

// ID returns the experiment id.
func (l *Local) ID() string { return l.id }

// Pool returns the worker pool, for starting more workers.
func (l *Local) Pool() *Pool { return l.pool }

// Close stops the workers.
func (l *Local) Close() error {
	l.pool.Stop()
	return nil
}

// SchedulePoints stores the points as pending and wakes the workers.
func (l *Local) SchedulePoints(ctx context.Context, points []sensitivity.ValuesMap) error {
	n, err := l.store.InsertPoints(ctx, l.id, points)
	if err != nil {
		return fmt.Errorf("schedule points: %w", err)
	}
	if dup := len(points) - n; dup > 0 {
		l.logf("Scheduled %d points, %d already present", n, dup)
	} else {
		l.logf("Scheduled %d points", n)
	}
	l.pool.Wake()
	return nil
}

// waitRecheck bounds how long WaitForDone sleeps between status checks
// when no completion is signalled.
const waitRecheck = time.Second

// WaitForDone blocks until no point is pending or running. It returns
// ErrNoActiveWorkers without blocking when points are outstanding and the
// pool has no workers.
func (l *Local) WaitForDone(ctx context.Context) error {
	for {
		changed := l.pool.Changed()
		counts, err := l.store.Counts(ctx, l.id)
		if err != nil {
			return err
		}
		if counts.Outstanding() == 0 {
			if counts.Failed > 0 {
				l.logf("%d of %d points failed", counts.Failed, counts.Total())
			}
			return nil
		}
		if l.pool.Active() == 0 {
			return fmt.Errorf("%d points outstanding: %w", counts.Outstanding(), ErrNoActiveWorkers)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		case <-l.clock.After(waitRecheck):
		}
	}
}

// GetResults returns the successfully executed points in schedule order.
func (l *Local) GetResults(ctx context.Context) ([]sensitivity.OutputRecord, error) {
	return l.store.Results(ctx, l.id)
}

// MarkAsComplete stores the analysis result and marks the experiment complete.
func (l *Local) MarkAsComplete(ctx context.Context, results json.RawMessage) error {
	if !json.Valid(results) {
		return fmt.Errorf("mark %s complete: results are not valid JSON", l.id)
	}
	return l.store.Complete(ctx, l.id, results)
}
