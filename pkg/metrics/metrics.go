// Package metrics provides Prometheus instrumentation for the cronq module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the run-lifecycle metrics a worker reports. A nil
// Collector is valid and records nothing.
type Collector struct {
	claimed   prometheus.Counter
	completed prometheus.Counter
	retried   prometheus.Counter
	exhausted prometheus.Counter
	skipped   prometheus.Counter
	pruned    prometheus.Counter
	claimTime prometheus.Histogram
}

// New creates a Collector and registers its metrics.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		claimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_claimed_total",
			Help: "Runs leased by this worker.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_completed_total",
			Help: "Runs that finished successfully and were deleted.",
		}),
		retried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_retried_total",
			Help: "Failed runs rescheduled with backoff.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_exhausted_total",
			Help: "Failed runs deleted after exhausting their attempts.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_skipped_total",
			Help: "Claimed runs vetoed by filters.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronq", Name: "runs_pruned_total",
			Help: "Abandoned runs deleted by prune.",
		}),
		claimTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cronq", Name: "claim_batch_seconds",
			Help:    "Duration of claim transactions.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(c.claimed, c.completed, c.retried, c.exhausted, c.skipped, c.pruned, c.claimTime)
	return c
}

// ClaimBatch records one claim transaction.
func (c *Collector) ClaimBatch(claimed int, d time.Duration) {
	if c == nil {
		return
	}
	c.claimed.Add(float64(claimed))
	c.claimTime.Observe(d.Seconds())
}

// RunCompleted records a successful run.
func (c *Collector) RunCompleted() {
	if c == nil {
		return
	}
	c.completed.Inc()
}

// RunRetried records a run rescheduled with backoff.
func (c *Collector) RunRetried() {
	if c == nil {
		return
	}
	c.retried.Inc()
}

// RunExhausted records a run deleted after its last attempt.
func (c *Collector) RunExhausted() {
	if c == nil {
		return
	}
	c.exhausted.Inc()
}

// RunSkipped records a filter veto.
func (c *Collector) RunSkipped() {
	if c == nil {
		return
	}
	c.skipped.Inc()
}

// RunsPruned records abandoned rows deleted by prune.
func (c *Collector) RunsPruned(n int64) {
	if c == nil {
		return
	}
	c.pruned.Add(float64(n))
}
