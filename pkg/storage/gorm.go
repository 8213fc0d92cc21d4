package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cristianfalcone/cronq/pkg/core"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying GORM handle.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

func (s *GormStorage) dialect() string {
	if s.db == nil {
		return ""
	}
	return s.db.Dialector.Name()
}

func (s *GormStorage) supportsSkipLocked() bool {
	switch s.dialect() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Run{}, &lockSlot{})
}

// Insert persists a new run.
func (s *GormStorage) Insert(ctx context.Context, run *core.Run) error {
	if run.Queue == "" {
		run.Queue = "default"
	}
	return s.db.WithContext(ctx).Create(run).Error
}

// InsertUnique persists a run carrying a unique key. A conflicting key
// is not an error: the insert is silently dropped and false is returned,
// which is how concurrent scheduler processes deduplicate the same cron
// occurrence.
func (s *GormStorage) InsertUnique(ctx context.Context, run *core.Run) (bool, error) {
	if run.UniqueKey == nil {
		return false, errors.New("cronq: InsertUnique requires a unique key")
	}
	if run.Queue == "" {
		run.Queue = "default"
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unique_key"}},
		DoNothing: true,
	}).Create(run)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Get retrieves a run by id, or nil if it no longer exists.
func (s *GormStorage) Get(ctx context.Context, id int64) (*core.Run, error) {
	var run core.Run
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a run row.
func (s *GormStorage) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Delete(&core.Run{}, id).Error
}

// Transaction runs fn against a transactional view of the store.
func (s *GormStorage) Transaction(ctx context.Context, fn func(tx core.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStorage{db: tx})
	})
}

// Claimable selects up to limit due, unleased runs whose name is among
// names, ordered by (priority, run_at, id). On dialects with row locks
// the read takes FOR UPDATE SKIP LOCKED so concurrent claim
// transactions skip each other's rows instead of blocking.
func (s *GormStorage) Claimable(ctx context.Context, names []string, now time.Time, limit int) ([]*core.Run, error) {
	if len(names) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx).
		Where("name IN ?", names).
		Where("run_at <= ?", now).
		Where("(locked_until IS NULL OR locked_until <= ?)", now).
		Order("priority ASC, run_at ASC, id ASC").
		Limit(limit)

	if s.supportsSkipLocked() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var runs []*core.Run
	err := q.Find(&runs).Error
	return runs, err
}

// Lease marks a run as claimed until the given instant and bumps its
// attempt counter. Attempts change nowhere else.
func (s *GormStorage) Lease(ctx context.Context, id int64, until time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"locked_until": until,
			"attempts":     gorm.Expr("attempts + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Reschedule moves a run to a new run_at and releases its lease.
func (s *GormStorage) Reschedule(ctx context.Context, id int64, runAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"run_at":       runAt,
			"locked_until": nil,
		}).Error
}

// Retime updates run_at of a run that has not been claimed. It reports
// false when the row is currently leased or already gone.
func (s *GormStorage) Retime(ctx context.Context, id int64, runAt, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("id = ?", id).
		Where("(locked_until IS NULL OR locked_until <= ?)", now).
		Update("run_at", runAt)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAbandoned removes runs whose lease expired before cutoff. This
// is the compensating action for workers that crashed mid-execution.
func (s *GormStorage) DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("locked_until IS NOT NULL AND locked_until < ?", cutoff).
		Delete(&core.Run{})
	return result.RowsAffected, result.Error
}

// Count returns the number of persisted runs for a job name.
func (s *GormStorage) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("name = ?", name).
		Count(&n).Error
	return n, err
}
