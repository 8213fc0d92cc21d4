package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/internal/handler"
	"github.com/cristianfalcone/cronq/pkg/runctx"
	"github.com/cristianfalcone/cronq/pkg/scheduler"
	"github.com/cristianfalcone/cronq/pkg/security"
)

// execute runs the filter/hook pipeline around one claimed run and
// resolves its outcome: delete on success, reschedule with backoff
// while attempts remain, delete on exhaustion. The concurrency slot is
// always released. It reports whether the handler was invoked; the
// returned error is non-nil only for definition errors, which are
// fatal and cross the worker boundary.
func (w *Worker) execute(ctx context.Context, c claim) (bool, error) {
	run, spec := c.run, c.spec
	defer w.releaseSlot(context.WithoutCancel(ctx), c.slot)

	if !spec.ShouldRun(ctx, run) {
		// Row left as-is: the next claim after lease expiry re-evaluates.
		w.sched.Emit(&core.RunSkipped{Run: run, Timestamp: w.clock.Now()})
		w.metrics.RunSkipped()
		return false, nil
	}

	started := time.Now()
	spec.RunBefore(ctx, run)

	h, err := w.sched.Resolve(spec)
	if err != nil {
		spec.RunFinally(ctx, run)
		return false, err
	}

	if err := w.invoke(ctx, h, run); err != nil {
		spec.RunCatch(ctx, run, err)
		spec.RunFinally(ctx, run)
		return true, w.resolveFailure(ctx, run, spec, err)
	}

	spec.RunThen(ctx, run)
	spec.RunFinally(ctx, run)

	if err := w.store.Delete(ctx, run.ID); err != nil {
		w.logger.Error("failed to delete completed run", "run_id", run.ID, "error", err)
		return true, nil
	}
	w.sched.Emit(&core.RunCompleted{Run: run, Duration: time.Since(started), Timestamp: w.clock.Now()})
	w.metrics.RunCompleted()
	return true, nil
}

// invoke calls the handler with the run's payload. Panics are recovered
// and treated as handler failures.
func (w *Worker) invoke(ctx context.Context, h *handler.Handler, run *core.Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Invoke(runctx.With(ctx, run), run.Args)
}

// resolveFailure decides between retry and exhaustion. The claim
// already incremented attempts, so the counter reflects the attempt
// that just failed.
func (w *Worker) resolveFailure(ctx context.Context, run *core.Run, spec *scheduler.JobSpec, cause error) error {
	now := w.clock.Now()

	if int(run.Attempts) < spec.Retry.MaxAttempts {
		delay := spec.Retry.Delay(run.Attempts)
		next := now.Add(delay)
		if err := w.store.Reschedule(ctx, run.ID, next); err != nil {
			return fmt.Errorf("cronq: reschedule run %d: %w", run.ID, err)
		}
		w.logger.Warn("run failed, rescheduled",
			"name", run.Name, "run_id", run.ID,
			"attempt", run.Attempts, "next_run_at", next,
			"error", security.SanitizeErrorMessage(cause.Error()))
		w.sched.Emit(&core.RunRetrying{
			Run: run, Attempt: int(run.Attempts), Error: cause,
			NextRunAt: next, Timestamp: now,
		})
		w.metrics.RunRetried()
		return nil
	}

	if err := w.store.Delete(ctx, run.ID); err != nil {
		return fmt.Errorf("cronq: delete exhausted run %d: %w", run.ID, err)
	}
	w.logger.Error("run failed permanently",
		"name", run.Name, "run_id", run.ID,
		"attempts", run.Attempts,
		"error", security.SanitizeErrorMessage(cause.Error()))
	w.sched.Emit(&core.RunExhausted{Run: run, Error: cause, Timestamp: now})
	w.metrics.RunExhausted()
	return nil
}
