package core

import (
	"context"
	"time"
)

// Storage defines the persistence primitives the scheduler and workers
// require from the shared store: transactions, a locking read that skips
// rows locked by concurrent claimers, non-blocking named mutual
// exclusion, and a unique constraint usable as an idempotency guard.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Insert persists a new run.
	Insert(ctx context.Context, run *Run) error

	// InsertUnique persists a run carrying a unique key. It reports false
	// without error when a row with the same key already exists; the
	// conflict is the cross-process idempotency mechanism.
	InsertUnique(ctx context.Context, run *Run) (bool, error)

	// Get returns the run with the given id, or nil if it no longer exists.
	Get(ctx context.Context, id int64) (*Run, error)

	// Delete removes a run row.
	Delete(ctx context.Context, id int64) error

	// Transaction runs fn against a transactional view of the store.
	Transaction(ctx context.Context, fn func(tx Storage) error) error

	// Claimable selects up to limit due, unleased runs whose name is in
	// names, ordered by (priority, run_at, id). Inside a Transaction the
	// read locks the returned rows and skips rows locked by concurrent
	// claimers where the dialect supports it.
	Claimable(ctx context.Context, names []string, now time.Time, limit int) ([]*Run, error)

	// Lease marks a run as claimed until the given instant and increments
	// its attempt counter. This is the only place attempts change.
	Lease(ctx context.Context, id int64, until time.Time) error

	// Reschedule moves a run to a new run_at and clears its lease.
	Reschedule(ctx context.Context, id int64, runAt time.Time) error

	// Retime updates run_at of an unclaimed run. It reports false when
	// the row is currently leased or no longer exists.
	Retime(ctx context.Context, id int64, runAt, now time.Time) (bool, error)

	// TryLock attempts to acquire the named mutual-exclusion slot without
	// blocking; it reports false immediately when the slot is held.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Unlock releases a slot acquired by TryLock.
	Unlock(ctx context.Context, key, owner string) error

	// DeleteAbandoned removes runs whose lease expired before cutoff.
	// It returns the number of rows deleted.
	DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the number of persisted runs for a job name.
	Count(ctx context.Context, name string) (int64, error)
}
