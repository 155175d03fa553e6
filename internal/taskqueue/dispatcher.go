// internal/taskqueue/dispatcher.go
//
// Background loop that turns queued tasks into daemon wake-ups.
//
// Workflow
// --------
//  1. Reconcile sent tasks against their rows (acknowledgement).
//  2. Claim due tasks.  If there are none, stop here.
//  3. Wake the daemon once for the whole batch.  The daemon scans every
//     pending row, so one conversation covers all claimed tasks.
//  4. Mark the batch sent, or release it for a later retry.
//
// A cycle runs on every poll tick and whenever Signal is called, which the
// provisioning service does right after a commit.
package taskqueue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/panel/internal/daemon"
	"github.com/yanizio/panel/internal/metrics"
)

// Dispatcher drives a Store.  Create it with NewDispatcher.
type Dispatcher struct {
	store    *Store
	notifier daemon.Notifier
	wake     chan struct{}

	mu        sync.Mutex
	lastPrune time.Time
}

// NewDispatcher wires store to notifier.
func NewDispatcher(store *Store, notifier daemon.Notifier) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		wake:     make(chan struct{}, 1),
	}
}

// Signal asks for a cycle as soon as possible.  It never blocks, and several
// signals before the next cycle collapse into one.
func (d *Dispatcher) Signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled.  Cycle errors are logged, not returned,
// so a database hiccup does not stop the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	cfg := d.store.Config()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	zap.S().Infow("task dispatcher started",
		"poll", cfg.PollInterval, "batch", cfg.BatchSize, "settle_timeout", cfg.SettleTimeout)

	for {
		select {
		case <-ctx.Done():
			zap.S().Info("task dispatcher stopping")
			return nil
		case <-ticker.C:
		case <-d.wake:
		}
		if err := d.Cycle(ctx); err != nil && ctx.Err() == nil {
			zap.S().Errorw("task dispatcher cycle failed", "err", err)
		}
	}
}

// Cycle runs one reconcile, claim, and notify pass.
func (d *Dispatcher) Cycle(ctx context.Context) error {
	if _, err := d.store.Reconcile(ctx); err != nil {
		return err
	}

	tasks, err := d.store.Claim(ctx)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		if err := d.notifier.Notify(ctx); err != nil {
			if relErr := d.store.Release(ctx, tasks, err); relErr != nil {
				return relErr
			}
		} else if err := d.store.MarkSent(ctx, tasks); err != nil {
			return err
		}
	}

	d.prune(ctx)
	d.observe(ctx)
	return nil
}

// Stats proxies Store.Stats for the health endpoint.
func (d *Dispatcher) Stats(ctx context.Context) (map[State]int, error) {
	return d.store.Stats(ctx)
}

func (d *Dispatcher) prune(ctx context.Context) {
	d.mu.Lock()
	due := time.Since(d.lastPrune) >= time.Hour
	if due {
		d.lastPrune = time.Now()
	}
	d.mu.Unlock()
	if !due {
		return
	}
	if n, err := d.store.Prune(ctx); err != nil {
		zap.S().Warnw("prune daemon tasks", "err", err)
	} else if n > 0 {
		zap.S().Infow("pruned daemon tasks", "count", n)
	}
}

func (d *Dispatcher) observe(ctx context.Context) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return
	}
	for st, n := range stats {
		metrics.TaskQueueDepth.WithLabelValues(string(st)).Set(float64(n))
	}
}
