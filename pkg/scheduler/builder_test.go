package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianfalcone/cronq/pkg/core"
	"github.com/cristianfalcone/cronq/pkg/security"
)

// ──────────────────────────────────────────────────────────────────────────────
// Modifiers
// ──────────────────────────────────────────────────────────────────────────────

func TestBuilder_ModifiersAccumulate(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.Schedule("report", noopHandler).
		Queue("batch").
		Priority(3).
		Lease(5 * time.Minute).
		Concurrency(4).
		Retries(7, 2*time.Second, time.Minute, JitterFull).
		Args("payload")

	spec, ok := s.Spec("report")
	require.True(t, ok)
	assert.Equal(t, "batch", spec.Queue)
	assert.Equal(t, 3, spec.Priority)
	assert.Equal(t, 5*time.Minute, spec.Lease)
	assert.Equal(t, 4, spec.Concurrency)
	assert.Equal(t, RetryPolicy{MaxAttempts: 7, Base: 2 * time.Second, Cap: time.Minute, Jitter: JitterFull}, spec.Retry)
	assert.Equal(t, "payload", spec.DefaultArgs)
}

func TestBuilder_InvalidQueuePanics(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	b := s.Schedule("report", noopHandler)

	assert.Panics(t, func() { b.Queue("") })
	assert.Panics(t, func() { b.Queue("has space") })
}

func TestBuilder_ConcurrencyIsClamped(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.Schedule("report", noopHandler).Concurrency(0)
	spec, _ := s.Spec("report")
	assert.Equal(t, 1, spec.Concurrency)

	s.Schedule("report", noopHandler).Concurrency(security.MaxConcurrency + 1)
	spec, _ = s.Spec("report")
	assert.Equal(t, security.MaxConcurrency, spec.Concurrency)
}

func TestBuilder_RetriesAreClamped(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.Schedule("report", noopHandler).Retries(security.MaxAttempts+50, time.Second, time.Minute, JitterNone)
	spec, _ := s.Spec("report")
	assert.Equal(t, security.MaxAttempts, spec.Retry.MaxAttempts)
}

func TestBuilder_FiltersAndHooksAppend(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	var order []string
	s.Schedule("report", noopHandler).
		When(func(ctx context.Context, run *core.Run) bool { order = append(order, "when"); return true }).
		Skip(func(ctx context.Context, run *core.Run) bool { order = append(order, "skip"); return false }).
		Before(func(ctx context.Context, run *core.Run) { order = append(order, "before1") }).
		Before(func(ctx context.Context, run *core.Run) { order = append(order, "before2") })

	spec, _ := s.Spec("report")
	run := &core.Run{ID: 1, Name: "report"}

	assert.True(t, spec.ShouldRun(ctx, run))
	spec.RunBefore(ctx, run)
	assert.Equal(t, []string{"when", "skip", "before1", "before2"}, order)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cron attachment
// ──────────────────────────────────────────────────────────────────────────────

func TestBuilder_CronInvalidExpressionPanics(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	b := s.Schedule("report", noopHandler)

	assert.Panics(t, func() { b.Cron("not a cron") })
	assert.Panics(t, func() { b.Cron("61 * * * *") })
}

func TestBuilder_CronShorthands(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	cases := []struct {
		attach func(b *Builder) *Builder
		expr   string
	}{
		{func(b *Builder) *Builder { return b.EverySeconds(10) }, "*/10 * * * * *"},
		{func(b *Builder) *Builder { return b.EveryMinute() }, "* * * * *"},
		{func(b *Builder) *Builder { return b.EveryMinutes(15) }, "*/15 * * * *"},
		{func(b *Builder) *Builder { return b.Hourly() }, "0 * * * *"},
		{func(b *Builder) *Builder { return b.Daily() }, "0 0 * * *"},
		{func(b *Builder) *Builder { return b.DailyAt(3, 30) }, "30 3 * * *"},
		{func(b *Builder) *Builder { return b.Weekly() }, "0 0 * * 0"},
		{func(b *Builder) *Builder { return b.WeeklyOn(time.Tuesday, 9, 15) }, "15 9 * * 2"},
		{func(b *Builder) *Builder { return b.Monthly() }, "0 0 1 * *"},
	}

	for _, tc := range cases {
		tc.attach(s.Schedule("report", noopHandler))
		spec, _ := s.Spec("report")
		require.NotNil(t, spec.Cron)
		assert.Equal(t, tc.expr, spec.Cron.Expr())
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Staged run-at
// ──────────────────────────────────────────────────────────────────────────────

func TestBuilder_AtStagesRunAtForNextDispatch(t *testing.T) {
	s, store, clock := newTestScheduler(t)
	ctx := context.Background()

	target := clock.Now().Add(time.Hour)
	b := s.Schedule("report", noopHandler).At(target)

	d, err := s.Dispatch(ctx, "report", nil)
	require.NoError(t, err)

	run, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, run.RunAt.Equal(target))

	// The staged instant is consumed; the next dispatch is immediate.
	d, err = b.Dispatch(ctx, "report")
	require.NoError(t, err)

	run, err = store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, run.RunAt.Equal(clock.Now()))
}

func TestBuilder_InStagesRelativeDelay(t *testing.T) {
	s, store, clock := newTestScheduler(t)
	ctx := context.Background()

	s.Schedule("report", noopHandler).In(30 * time.Minute)

	d, err := s.Dispatch(ctx, "report", nil)
	require.NoError(t, err)

	run, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, run.RunAt.Equal(clock.Now().Add(30*time.Minute)))
}

// ──────────────────────────────────────────────────────────────────────────────
// Drafts
// ──────────────────────────────────────────────────────────────────────────────

func TestJob_DraftDispatchBindsNameAndKeepsState(t *testing.T) {
	s, store, clock := newTestScheduler(t)
	ctx := context.Background()

	target := clock.Now().Add(time.Hour)
	b := s.Job().
		Queue("batch").
		Priority(2).
		Args(map[string]string{"region": "eu"}).
		At(target)

	d, err := b.Dispatch(ctx, "report")
	require.NoError(t, err)

	spec, ok := s.Spec("report")
	require.True(t, ok, "the draft is now a named definition")
	assert.Equal(t, "batch", spec.Queue)
	assert.Equal(t, 2, spec.Priority)

	run, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "report", run.Name)
	assert.Equal(t, "batch", run.Queue)
	assert.Equal(t, 2, run.Priority)
	assert.True(t, run.RunAt.Equal(target), "staged instant survives the rename")
	assert.JSONEq(t, `{"region":"eu"}`, string(run.Args))
}

func TestJob_DraftInvalidNameFailsDispatch(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	_, err := s.Job().Dispatch(context.Background(), "has space")
	require.Error(t, err)

	var defErr *core.DefinitionError
	assert.ErrorAs(t, err, &defErr)
}

func TestJob_DraftIsInvisibleUntilDispatched(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	b := s.Job().Queue("batch")
	assert.Empty(t, s.KnownNames())

	_, err := b.Dispatch(ctx, "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"report"}, s.KnownNames())
}

func TestBuilder_DispatchUnderDifferentNameRenames(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	b := s.Schedule("old-name", noopHandler).Queue("batch")

	_, err := b.Dispatch(ctx, "new-name")
	require.NoError(t, err)

	_, ok := s.Spec("old-name")
	assert.False(t, ok)

	spec, ok := s.Spec("new-name")
	require.True(t, ok)
	assert.Equal(t, "batch", spec.Queue)
	assert.Equal(t, "new-name", spec.Name)
}
