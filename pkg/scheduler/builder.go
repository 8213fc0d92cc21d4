package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/cronexpr"
	"github.com/cristianfalcone/cronq/pkg/security"
)

func draftKey() string {
	return "draft:" + uuid.New().String()
}

// Builder mutates one active JobSpec. All modifiers return the builder
// for chaining; hook and filter lists accumulate in registration order
// and are never cleared automatically.
type Builder struct {
	s   *Scheduler
	key string
}

func (b *Builder) spec() *JobSpec {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	spec, ok := b.s.specs[b.key]
	if !ok {
		panic(&core.DefinitionError{Name: b.key, Reason: "definition no longer exists"})
	}
	return spec
}

// Queue sets the queue name.
func (b *Builder) Queue(name string) *Builder {
	if err := security.ValidateQueueName(name); err != nil {
		panic(&core.DefinitionError{Name: b.key, Reason: "invalid queue name", Err: err})
	}
	b.spec().Queue = name
	return b
}

// Priority sets the run priority. Lower values are claimed earlier.
func (b *Builder) Priority(p int) *Builder {
	b.spec().Priority = p
	return b
}

// Lease sets the duration a claimed run stays owned by a worker. The
// lease is a soft timeout: a handler that outlives it may be re-claimed
// and re-executed concurrently.
func (b *Builder) Lease(d time.Duration) *Builder {
	b.spec().Lease = d
	return b
}

// Concurrency caps how many runs of this job may be in flight across
// all workers. Values are clamped to [1, security.MaxConcurrency].
func (b *Builder) Concurrency(n int) *Builder {
	b.spec().Concurrency = security.ClampConcurrency(n)
	return b
}

// Retries configures the retry policy: maximum claim attempts, backoff
// base and cap, and jitter mode.
func (b *Builder) Retries(max int, base, cap time.Duration, jitter Jitter) *Builder {
	b.spec().Retry = RetryPolicy{
		MaxAttempts: security.ClampAttempts(max),
		Base:        base,
		Cap:         cap,
		Jitter:      jitter,
	}
	return b
}

// Args sets the default argument payload for dispatched runs and cron
// occurrences.
func (b *Builder) Args(v any) *Builder {
	b.spec().DefaultArgs = v
	return b
}

// Cron attaches a 5- or 6-field cron expression. An invalid expression
// is a definition mistake and panics.
func (b *Builder) Cron(expr string) *Builder {
	sched, err := cronexpr.Parse(expr)
	if err != nil {
		panic(&core.DefinitionError{Name: b.key, Reason: err.Error()})
	}
	b.spec().Cron = sched
	return b
}

// Cron shorthands.

// EverySeconds runs every n seconds (6-field expression).
func (b *Builder) EverySeconds(n int) *Builder {
	return b.Cron(fmt.Sprintf("*/%d * * * * *", n))
}

// EveryMinute runs at every whole minute.
func (b *Builder) EveryMinute() *Builder {
	return b.Cron("* * * * *")
}

// EveryMinutes runs every n minutes.
func (b *Builder) EveryMinutes(n int) *Builder {
	return b.Cron(fmt.Sprintf("*/%d * * * *", n))
}

// Hourly runs at the top of every hour.
func (b *Builder) Hourly() *Builder {
	return b.Cron("0 * * * *")
}

// Daily runs at midnight.
func (b *Builder) Daily() *Builder {
	return b.Cron("0 0 * * *")
}

// DailyAt runs at the given hour and minute every day.
func (b *Builder) DailyAt(hour, minute int) *Builder {
	return b.Cron(fmt.Sprintf("%d %d * * *", minute, hour))
}

// Weekly runs at midnight on Sunday.
func (b *Builder) Weekly() *Builder {
	return b.Cron("0 0 * * 0")
}

// WeeklyOn runs at the given weekday, hour and minute.
func (b *Builder) WeeklyOn(day time.Weekday, hour, minute int) *Builder {
	return b.Cron(fmt.Sprintf("%d %d * * %d", minute, hour, int(day)))
}

// Monthly runs at midnight on the first of the month.
func (b *Builder) Monthly() *Builder {
	return b.Cron("0 0 1 * *")
}

// When adds a filter that must pass for a claimed run to execute.
func (b *Builder) When(f Filter) *Builder {
	spec := b.spec()
	spec.when = append(spec.when, f)
	return b
}

// Skip adds a filter that vetoes execution when it returns true.
func (b *Builder) Skip(f Filter) *Builder {
	spec := b.spec()
	spec.skip = append(spec.skip, f)
	return b
}

// Before adds a hook invoked before the handler.
func (b *Builder) Before(h Hook) *Builder {
	spec := b.spec()
	spec.before = append(spec.before, h)
	return b
}

// Then adds a hook invoked after the handler returns successfully.
func (b *Builder) Then(h Hook) *Builder {
	spec := b.spec()
	spec.then = append(spec.then, h)
	return b
}

// Catch adds a hook invoked with the handler error on failure.
func (b *Builder) Catch(h CatchHook) *Builder {
	spec := b.spec()
	spec.catch = append(spec.catch, h)
	return b
}

// Finally adds a hook invoked after every execution regardless of outcome.
func (b *Builder) Finally(h Hook) *Builder {
	spec := b.spec()
	spec.finally = append(spec.finally, h)
	return b
}

// At stages the scheduled instant consumed by the next Dispatch.
func (b *Builder) At(t time.Time) *Builder {
	spec := b.spec()
	spec.stagedAt = &t
	return b
}

// In stages a relative delay consumed by the next Dispatch.
func (b *Builder) In(d time.Duration) *Builder {
	t := b.s.clock.Now().Add(d)
	return b.At(t)
}

// Dispatch binds an open draft to its final name, preserving all staged
// state, and inserts one run for it. On a named definition it behaves
// like Scheduler.Dispatch with the definition's default args.
func (b *Builder) Dispatch(ctx context.Context, name string) (*Dispatched, error) {
	spec := b.spec()
	if spec.draft || spec.Name != name {
		renamed, err := b.s.rename(b.key, name)
		if err != nil {
			return nil, err
		}
		b.key = name
		spec = renamed
	}
	return b.s.dispatchSpec(ctx, spec, nil)
}
