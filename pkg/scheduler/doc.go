// Package scheduler provides the job registry, the fluent definition
// builder, and the dispatcher that materializes persisted runs.
//
// A Scheduler owns an in-memory table of job definitions (JobSpec) and
// a storage handle. Definitions are built fluently:
//
//	s := scheduler.New(store)
//	s.Schedule("reports", buildReports).
//		Queue("batch").
//		DailyAt(6, 30).
//		Retries(5, 2*time.Second, time.Minute, scheduler.JitterFull)
//
// On-demand work is dispatched as individual rows:
//
//	d, err := s.Dispatch(ctx, "send-email", email)
//	err = d.At(ctx, time.Now().Add(10*time.Second)) // retime while unclaimed
//
// EnqueueDue materializes cron occurrences idempotently; it is invoked
// once per worker tick and is safe to race across processes.
//
// Most users should import the root package github.com/cristianfalcone/cronq
// which re-exports this surface.
package scheduler
