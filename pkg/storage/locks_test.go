package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianfalcone/cronq/pkg/core"
)

// ──────────────────────────────────────────────────────────────────────────────
// TryLock / Unlock (lock-table path)
// ──────────────────────────────────────────────────────────────────────────────

func TestTryLock_AcquiresFreeSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLock_HeldSlotIsDenied(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a live slot must not be granted twice")
}

func TestTryLock_DistinctSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TryLock(ctx, "cronq:report:1", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLock_StealsExpiredSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// worker-1 is gone; its ttl already lapsed.
	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired slot is stealable")

	// And the new holder's ttl protects it again.
	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlock_ReleasesOwnedSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Unlock(ctx, "cronq:report:0", "worker-1"))

	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_IsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A stranger's release must not free worker-1's slot.
	require.NoError(t, s.Unlock(ctx, "cronq:report:0", "worker-2"))

	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlock_ReleasesThroughAnotherHandle(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A release through a different storage handle over the same
	// database must actually free the slot; slot ownership lives in the
	// table, not in any one connection or session.
	other := NewGormStorage(s.DB())
	require.NoError(t, other.Unlock(ctx, "cronq:report:0", "worker-1"))

	ok, err = s.TryLock(ctx, "cronq:report:0", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLock_RollsBackWithFailedTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	err := s.Transaction(ctx, func(tx core.Storage) error {
		ok, err := tx.TryLock(ctx, "cronq:report:0", "worker-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// The slot row rolled back with the transaction; no leak to clean up.
	ok, err := s.TryLock(ctx, "cronq:report:0", "worker-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlock_UnknownSlotIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	assert.NoError(t, s.Unlock(ctx, "cronq:nothing:0", "worker-1"))
}
