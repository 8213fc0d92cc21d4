package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/metrics"
	"github.com/cristianfalcone/cronq/pkg/scheduler"
)

// Worker claims and executes runs for one scheduler instance.
type Worker struct {
	sched   *scheduler.Scheduler
	store   core.Storage
	clock   core.Clock
	config  Config
	logger  *slog.Logger
	sem     *semaphore.Weighted
	metrics *metrics.Collector
}

// claim is one leased row together with the definition and the
// concurrency slot that authorized it.
type claim struct {
	run  *core.Run
	spec *scheduler.JobSpec
	slot string
}

// New creates a worker over the scheduler's store and clock.
func New(s *scheduler.Scheduler, opts ...Option) *Worker {
	w := &Worker{
		sched: s,
		store: s.Storage(),
		clock: s.Clock(),
		config: Config{
			BatchLimit:   100,
			PollInterval: 100 * time.Millisecond,
			Parallelism:  10,
			WorkerID:     uuid.New().String(),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.applyWorker(w)
	}
	w.sem = semaphore.NewWeighted(w.config.Parallelism)
	return w
}

// Install creates the database schema.
func (w *Worker) Install(ctx context.Context) error {
	return w.store.Migrate(ctx)
}

// RunOnce performs one scheduler tick: it materializes due cron
// occurrences, claims one batch and executes it. It returns the number
// of runs whose handler was invoked.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	if err := w.sched.EnqueueDue(ctx); err != nil {
		return 0, err
	}

	claims, err := w.claimBatch(ctx)
	if err != nil {
		return 0, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		executed int
		fatal    error
	)

	// Executions start in (priority, run_at, id) order; the semaphore
	// bounds how many are in flight at once.
	for _, c := range claims {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			w.releaseSlot(context.WithoutCancel(ctx), c.slot)
			continue
		}
		wg.Add(1)
		go func(c claim) {
			defer wg.Done()
			defer w.sem.Release(1)
			ran, err := w.execute(ctx, c)
			mu.Lock()
			if ran {
				executed++
			}
			if err != nil && fatal == nil {
				fatal = err
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	return executed, fatal
}

// Run processes runs until the context is cancelled. Cancellation is
// observed at tick boundaries only; an in-flight handler always
// completes its current run.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info("worker started", "worker_id", w.config.WorkerID)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", "worker_id", w.config.WorkerID)
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				w.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Prune deletes runs abandoned by crashed workers: rows whose lease
// expired more than olderThan ago. Rows with merely expired leases are
// reclaimed by the claim engine and need no prune.
func (w *Worker) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := w.clock.Now().Add(-olderThan)
	n, err := w.store.DeleteAbandoned(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.logger.Info("pruned abandoned runs", "count", n)
		w.sched.Emit(&core.RunsPruned{Count: n, Timestamp: w.clock.Now()})
		w.metrics.RunsPruned(n)
	}
	return n, nil
}

// claimBatch atomically selects due, unleased rows for known job names
// and leases those that win a concurrency slot. Rows that cannot get a
// slot are left untouched for a later tick. Handler execution happens
// outside this transaction; only the slot is held while handlers run.
func (w *Worker) claimBatch(ctx context.Context) ([]claim, error) {
	names := w.sched.KnownNames()
	if len(names) == 0 {
		return nil, nil
	}

	now := w.clock.Now()
	started := time.Now()
	var claims []claim

	err := w.store.Transaction(ctx, func(tx core.Storage) error {
		rows, err := tx.Claimable(ctx, names, now, w.config.BatchLimit)
		if err != nil {
			return err
		}
		for _, run := range rows {
			spec, ok := w.sched.Spec(run.Name)
			if !ok {
				continue
			}
			slot, acquired, err := w.acquireSlot(ctx, tx, spec)
			if err != nil {
				return err
			}
			if !acquired {
				// Concurrency exhausted: silent deferral.
				continue
			}
			until := now.Add(spec.Lease)
			if err := tx.Lease(ctx, run.ID, until); err != nil {
				return err
			}
			// Mirror the storage-side mutation on the in-memory row.
			run.Attempts++
			run.LockedUntil = &until
			claims = append(claims, claim{run: run, spec: spec, slot: slot})
		}
		return nil
	})
	if err != nil {
		// Slot rows taken inside the failed transaction rolled back
		// with it; nothing to release.
		return nil, fmt.Errorf("cronq: claim batch: %w", err)
	}

	w.metrics.ClaimBatch(len(claims), time.Since(started))
	for _, c := range claims {
		w.sched.Emit(&core.RunClaimed{Run: c.run, Timestamp: now})
	}
	return claims, nil
}

// acquireSlot tries each of the spec's numbered concurrency slots and
// reports the first one that is free. Slot ownership lives entirely in
// the store's advisory-lock primitive; there is no bookkeeping table of
// in-flight runs.
func (w *Worker) acquireSlot(ctx context.Context, tx core.Storage, spec *scheduler.JobSpec) (string, bool, error) {
	n := spec.Concurrency
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("cronq:%s:%d", spec.Name, i)
		ok, err := tx.TryLock(ctx, key, w.config.WorkerID, spec.Lease)
		if err != nil {
			return "", false, err
		}
		if ok {
			return key, true, nil
		}
	}
	return "", false, nil
}

func (w *Worker) releaseSlot(ctx context.Context, slot string) {
	if err := w.store.Unlock(ctx, slot, w.config.WorkerID); err != nil {
		w.logger.Warn("failed to release concurrency slot", "slot", slot, "error", err)
	}
}
