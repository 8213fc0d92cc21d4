package scheduler

import (
	"context"
	"time"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/cronexpr"
	"github.com/cristianfalcone/cronq/pkg/internal/handler"
)

// Jitter selects how retry backoff is randomized.
type Jitter string

const (
	// JitterNone uses the raw exponential delay, floored at one second.
	JitterNone Jitter = "none"
	// JitterFull draws the delay uniformly from [0, raw] whole seconds.
	JitterFull Jitter = "full"
)

// RetryPolicy controls rescheduling of failed runs.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
	Jitter      Jitter
}

// Filter decides whether a claimed run should execute. All `when`
// filters must pass and no `skip` filter may fire.
type Filter func(ctx context.Context, run *core.Run) bool

// Hook observes a run's lifecycle.
type Hook func(ctx context.Context, run *core.Run)

// CatchHook observes a handler failure together with the run's payload.
type CatchHook func(ctx context.Context, run *core.Run, err error)

// Default JobSpec values.
const (
	DefaultQueue       = "default"
	DefaultPriority    = 100
	DefaultLease       = time.Minute
	DefaultConcurrency = 1
)

// DefaultRetry is the retry policy applied to new definitions.
var DefaultRetry = RetryPolicy{
	MaxAttempts: 3,
	Base:        time.Second,
	Cap:         time.Minute,
	Jitter:      JitterNone,
}

// JobSpec is the in-memory definition of a job: its handler, queueing
// defaults, schedule, retry policy, filters and hooks. Specs are owned
// by a Scheduler; define jobs before starting workers.
type JobSpec struct {
	Name        string
	Queue       string
	Priority    int
	Lease       time.Duration
	Concurrency int
	Retry       RetryPolicy
	Cron        *cronexpr.Schedule
	DefaultArgs any

	// handler is the direct callable; nil means Name is an identifier
	// resolved lazily at execution time.
	handler *handler.Handler

	when    []Filter
	skip    []Filter
	before  []Hook
	then    []Hook
	finally []Hook
	catch   []CatchHook

	// stagedAt is consumed and cleared by the next Dispatch.
	stagedAt *time.Time

	draft bool
}

func newJobSpec(name string) *JobSpec {
	return &JobSpec{
		Name:        name,
		Queue:       DefaultQueue,
		Priority:    DefaultPriority,
		Lease:       DefaultLease,
		Concurrency: DefaultConcurrency,
		Retry:       DefaultRetry,
	}
}

// ShouldRun evaluates the spec's filters: every `when` filter must pass
// and any `skip` filter returning true vetoes the run.
func (s *JobSpec) ShouldRun(ctx context.Context, run *core.Run) bool {
	for _, f := range s.when {
		if !f(ctx, run) {
			return false
		}
	}
	for _, f := range s.skip {
		if f(ctx, run) {
			return false
		}
	}
	return true
}

// RunBefore invokes the before hooks in registration order.
func (s *JobSpec) RunBefore(ctx context.Context, run *core.Run) {
	for _, h := range s.before {
		h(ctx, run)
	}
}

// RunThen invokes the then hooks in registration order.
func (s *JobSpec) RunThen(ctx context.Context, run *core.Run) {
	for _, h := range s.then {
		h(ctx, run)
	}
}

// RunCatch invokes the catch hooks with the handler error.
func (s *JobSpec) RunCatch(ctx context.Context, run *core.Run, err error) {
	for _, h := range s.catch {
		h(ctx, run, err)
	}
}

// RunFinally invokes the finally hooks. They run regardless of outcome.
func (s *JobSpec) RunFinally(ctx context.Context, run *core.Run) {
	for _, h := range s.finally {
		h(ctx, run)
	}
}
