package experiment

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/sensitivity.report/internal/monitoring"
	"github.com/banshee-data/sensitivity.report/internal/sensitivity"
	"github.com/banshee-data/sensitivity.report/internal/timeutil"
)

// DefaultIdleInterval is how long an idle worker waits before looking for
// pending points again when it has not been woken.
const DefaultIdleInterval = 200 * time.Millisecond

// Pool runs an experiment's pending points on a fixed number of workers.
type Pool struct {
	store *Store
	expID string
	sim   Simulation
	clock timeutil.Clock
	idle  time.Duration
	logf  func(format string, v ...interface{})

	wake chan struct{}

	mu      sync.Mutex
	active  int
	changed chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool returns a stopped pool for the experiment.
func NewPool(store *Store, expID string, sim Simulation) *Pool {
	return &Pool{
		store:   store,
		expID:   expID,
		sim:     sim,
		clock:   timeutil.RealClock{},
		idle:    DefaultIdleInterval,
		logf:    monitoring.Prefixed("worker"),
		wake:    make(chan struct{}, 1),
		changed: make(chan struct{}),
	}
}

// Start launches n workers. Calling Start on a running pool adds workers.
func (p *Pool) Start(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	prev := p.cancel
	p.cancel = func() {
		cancel()
		if prev != nil {
			prev()
		}
	}
	for i := 0; i < n; i++ {
		p.active++
		p.wg.Add(1)
		go p.work(ctx, p.active)
	}
	p.logf("Started %d workers for experiment %s", n, p.expID)
}

// Stop cancels the workers and waits for them to exit. A point being run
// when Stop is called is left running in the store and is released when
// the experiment is reopened.
func (p *Pool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Active returns the number of running workers.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Wake nudges an idle worker to look for pending points.
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Changed returns a channel that is closed the next time a point finishes
// or the set of active workers changes.
func (p *Pool) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

func (p *Pool) notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Pool) work(ctx context.Context, worker int) {
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		p.notify()
		p.wg.Done()
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		pt, ok, err := p.store.ClaimPending(ctx, p.expID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logf("worker %d: %v", worker, err)
			ok = false
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
			case <-p.clock.After(p.idle):
			}
			continue
		}

		p.run(ctx, worker, pt)
		p.notify()
		// Pass the wake-up on so other idle workers look for more work.
		p.Wake()
	}
}

func (p *Pool) run(ctx context.Context, worker int, pt *Point) {
	monitoring.Debugf("worker %d: running point %d", worker, pt.Seq)
	outputs, err := p.sim.Run(ctx, pt.Inputs)
	if ctx.Err() != nil {
		// Stopped mid-point; leave it running for ReleaseRunning.
		return
	}
	// Store updates use a fresh context so a finished point is recorded
	// even if Stop races with it.
	storeCtx := context.Background()
	if err != nil {
		p.logf("worker %d: point %d failed: %v", worker, pt.Seq, err)
		if ferr := p.store.FailPoint(storeCtx, p.expID, pt.Seq, err.Error()); ferr != nil {
			p.logf("worker %d: %v", worker, ferr)
		}
		return
	}
	if key, bad := nonFinite(outputs); bad {
		err = fmt.Errorf("output %q is not a finite number", key)
		p.logf("worker %d: point %d failed: %v", worker, pt.Seq, err)
		if ferr := p.store.FailPoint(storeCtx, p.expID, pt.Seq, err.Error()); ferr != nil {
			p.logf("worker %d: %v", worker, ferr)
		}
		return
	}
	if ferr := p.store.FinishPoint(storeCtx, p.expID, pt.Seq, outputs); ferr != nil {
		// A point left running would block WaitForDone forever.
		p.logf("worker %d: point %d: %v", worker, pt.Seq, ferr)
		if ferr := p.store.FailPoint(storeCtx, p.expID, pt.Seq, ferr.Error()); ferr != nil {
			p.logf("worker %d: %v", worker, ferr)
		}
	}
}

// nonFinite returns the first output key holding NaN or ±Inf.
func nonFinite(outputs sensitivity.ValuesMap) (string, bool) {
	for _, k := range outputs.Keys() {
		if v, _ := outputs.Get(k); math.IsNaN(v) || math.IsInf(v, 0) {
			return k, true
		}
	}
	return "", false
}
