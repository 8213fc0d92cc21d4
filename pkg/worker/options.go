package worker

import (
	"log/slog"
	"time"

	"github.com/cristianfalcone/cronq/pkg/metrics"
)

// Config holds worker configuration.
type Config struct {
	// BatchLimit caps how many rows one claim transaction selects.
	BatchLimit int

	// PollInterval is the delay between scheduler ticks in Run.
	PollInterval time.Duration

	// Parallelism caps in-flight executions inside this process.
	Parallelism int64

	// WorkerID identifies this worker in lock-slot ownership and logs.
	WorkerID string
}

// Option configures a Worker.
type Option interface {
	applyWorker(*Worker)
}

type optionFunc func(*Worker)

func (f optionFunc) applyWorker(w *Worker) { f(w) }

// BatchLimit sets the maximum rows claimed per tick.
func BatchLimit(n int) Option {
	return optionFunc(func(w *Worker) {
		w.config.BatchLimit = n
	})
}

// PollInterval sets the delay between scheduler ticks.
func PollInterval(d time.Duration) Option {
	return optionFunc(func(w *Worker) {
		w.config.PollInterval = d
	})
}

// Parallelism caps in-flight executions inside this process.
func Parallelism(n int64) Option {
	return optionFunc(func(w *Worker) {
		w.config.Parallelism = n
	})
}

// WithLogger replaces the worker's logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(w *Worker) {
		w.logger = l
	})
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return optionFunc(func(w *Worker) {
		w.metrics = c
	})
}
