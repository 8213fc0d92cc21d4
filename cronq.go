// Package cronq is a hybrid cron scheduler and durable job queue over a
// shared relational store.
//
// Job definitions (cron or on-demand) persist as individual execution
// rows; any number of independent worker processes race to claim,
// lease, execute, retry and clean up those rows with no coordination
// beyond the store itself.
//
// This is the main package users should import. It re-exports the
// public types from the internal pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("cronq.db"), &gorm.Config{})
//	store := cronq.NewGormStorage(db)
//	store.Migrate(context.Background())
//
//	s := cronq.New(store)
//	s.Schedule("send-email", func(ctx context.Context, email string) error {
//	    return sendEmail(email)
//	}).Queue("mail").Retries(5, 2*time.Second, time.Minute, cronq.JitterFull)
//
//	s.Schedule("cleanup", cleanup).DailyAt(3, 0)
//
//	s.Dispatch(ctx, "send-email", "user@example.com")
//
//	w := cronq.NewWorker(s)
//	w.Run(ctx)
package cronq

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/cronexpr"
	"github.com/cristianfalcone/cronq/pkg/metrics"
	"github.com/cristianfalcone/cronq/pkg/runctx"
	"github.com/cristianfalcone/cronq/pkg/scheduler"
	"github.com/cristianfalcone/cronq/pkg/security"
	"github.com/cristianfalcone/cronq/pkg/storage"
	"github.com/cristianfalcone/cronq/pkg/worker"
)

// Type aliases re-exported from the pkg/ packages.
type (
	// Run is one persisted execution attempt of a job.
	Run = core.Run

	// Storage defines the persistence primitives for runs.
	Storage = core.Storage

	// Clock supplies the current instant; injectable for tests.
	Clock = core.Clock

	// SystemClock reads the wall clock.
	SystemClock = core.SystemClock

	// FixedClock returns a preset instant until advanced.
	FixedClock = core.FixedClock

	// Event is the interface for all scheduler events.
	Event = core.Event

	// RunClaimed is emitted when a run is leased by a worker.
	RunClaimed = core.RunClaimed

	// RunCompleted is emitted when a run finishes successfully.
	RunCompleted = core.RunCompleted

	// RunRetrying is emitted when a failed run is rescheduled.
	RunRetrying = core.RunRetrying

	// RunExhausted is emitted when a run fails with no attempts left.
	RunExhausted = core.RunExhausted

	// RunSkipped is emitted when filters veto a claimed run.
	RunSkipped = core.RunSkipped

	// RunsPruned is emitted after abandoned rows are deleted.
	RunsPruned = core.RunsPruned

	// DefinitionError reports a job definition that cannot be executed.
	DefinitionError = core.DefinitionError

	// OverflowError reports an unsatisfiable cron expression.
	OverflowError = cronexpr.OverflowError

	// CronSchedule is a parsed cron expression.
	CronSchedule = cronexpr.Schedule

	// Scheduler owns the in-memory job table and the dispatcher.
	Scheduler = scheduler.Scheduler

	// Builder mutates one active job definition.
	Builder = scheduler.Builder

	// JobSpec is the in-memory definition of a job.
	JobSpec = scheduler.JobSpec

	// RetryPolicy controls rescheduling of failed runs.
	RetryPolicy = scheduler.RetryPolicy

	// Jitter selects how retry backoff is randomized.
	Jitter = scheduler.Jitter

	// Filter decides whether a claimed run should execute.
	Filter = scheduler.Filter

	// Hook observes a run's lifecycle.
	Hook = scheduler.Hook

	// CatchHook observes a handler failure.
	CatchHook = scheduler.CatchHook

	// Dispatched is a handle to a freshly inserted run.
	Dispatched = scheduler.Dispatched

	// SchedulerOption configures a Scheduler.
	SchedulerOption = scheduler.Option

	// Worker claims and executes runs.
	Worker = worker.Worker

	// WorkerOption configures a Worker.
	WorkerOption = worker.Option

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption configures connection pool settings.
	PoolOption = storage.PoolOption

	// Metrics holds the Prometheus instrumentation a worker reports to.
	Metrics = metrics.Collector
)

// Jitter modes.
const (
	JitterNone = scheduler.JitterNone
	JitterFull = scheduler.JitterFull
)

// Validation limits.
const (
	MaxJobNameLength   = security.MaxJobNameLength
	MaxQueueNameLength = security.MaxQueueNameLength
	MaxArgsSize        = security.MaxArgsSize
	MaxAttempts        = security.MaxAttempts
	MaxConcurrency     = security.MaxConcurrency
)

// Error variables.
var (
	ErrPostDispatchConflict = core.ErrPostDispatchConflict
	ErrInvalidJobName       = core.ErrInvalidJobName
	ErrInvalidQueueName     = core.ErrInvalidQueueName
	ErrArgsTooLarge         = core.ErrArgsTooLarge
)

// New creates a Scheduler over the given storage backend.
func New(store Storage, opts ...SchedulerOption) *Scheduler {
	return scheduler.New(store, opts...)
}

// WithClock injects the clock used by the scheduler and its workers.
func WithClock(c Clock) SchedulerOption {
	return scheduler.WithClock(c)
}

// NewWorker creates a worker for the given scheduler.
func NewWorker(s *Scheduler, opts ...WorkerOption) *Worker {
	return worker.New(s, opts...)
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// NewGormStorageWithPool creates a GORM-backed storage with connection
// pooling configured.
func NewGormStorageWithPool(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	return storage.NewGormStorageWithPool(db, opts...)
}

// NewMetrics creates a metrics collector registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// ParseCron parses a 5- or 6-field cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	return cronexpr.Parse(expr)
}

// Worker option functions.

// BatchLimit sets the maximum rows claimed per tick.
func BatchLimit(n int) WorkerOption {
	return worker.BatchLimit(n)
}

// PollInterval sets the delay between scheduler ticks.
func PollInterval(d time.Duration) WorkerOption {
	return worker.PollInterval(d)
}

// Parallelism caps in-flight executions inside one process.
func Parallelism(n int64) WorkerOption {
	return worker.Parallelism(n)
}

// WithMetrics attaches a metrics collector to a worker.
func WithMetrics(c *Metrics) WorkerOption {
	return worker.WithMetrics(c)
}

// RunFromContext returns the current Run inside a handler, or nil.
func RunFromContext(ctx context.Context) *Run {
	return runctx.RunFromContext(ctx)
}

// RunIDFromContext returns the current run id inside a handler, or zero.
func RunIDFromContext(ctx context.Context) int64 {
	return runctx.RunIDFromContext(ctx)
}
