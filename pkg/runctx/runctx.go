// Package runctx exposes the current run to handlers through their context.
package runctx

import (
	"context"

	"github.com/cristianfalcone/cronq/pkg/core"
)

type runKey struct{}

// With returns a context carrying the run. Workers attach it before
// invoking a handler.
func With(ctx context.Context, run *core.Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext returns the current Run, or nil outside a handler.
// Use this to get the run id or attempt counter for logging.
func RunFromContext(ctx context.Context) *core.Run {
	run, _ := ctx.Value(runKey{}).(*core.Run)
	return run
}

// RunIDFromContext returns the current run id, or zero outside a handler.
func RunIDFromContext(ctx context.Context) int64 {
	run := RunFromContext(ctx)
	if run == nil {
		return 0
	}
	return run.ID
}
