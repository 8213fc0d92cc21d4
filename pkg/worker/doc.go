// Package worker provides the claim engine, executor and worker loop
// for the cronq module.
//
// Any number of workers may run the same loop against one shared store;
// the store is the only coordination medium. Each tick a worker
// materializes due cron occurrences, claims one batch of due rows under
// a skip-locked transaction with per-job concurrency slots, and
// executes them through the filter/hook pipeline. Shutdown is
// cooperative: cancellation is observed at iteration boundaries and
// never preempts an in-flight handler.
package worker
