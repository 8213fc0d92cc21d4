package runctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cristianfalcone/cronq/pkg/core"
)

func TestRunFromContext(t *testing.T) {
	run := &core.Run{ID: 42, Name: "report"}
	ctx := With(context.Background(), run)

	assert.Same(t, run, RunFromContext(ctx))
	assert.Equal(t, int64(42), RunIDFromContext(ctx))
}

func TestRunFromContext_OutsideHandler(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, RunFromContext(ctx))
	assert.Zero(t, RunIDFromContext(ctx))
}
