package storage

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// lockSlot is a named mutual-exclusion slot. One row is one held slot; a
// row whose expiry passed is stealable, so slots held by crashed workers
// free themselves. The table is used on every dialect: session-scoped
// advisory locks cannot be released reliably through a connection pool,
// since the release may run on a different connection than the acquire.
type lockSlot struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Owner     string    `gorm:"size:64;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// TableName sets the table name for GORM.
func (lockSlot) TableName() string {
	return "lock_slots"
}

// TryLock attempts to acquire a named slot without blocking. It inserts
// into the lock table, stealing the row if the previous holder's ttl
// lapsed. Inside a transaction the slot row commits or rolls back with
// the rest of the transaction's writes.
func (s *GormStorage) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&lockSlot{Key: key, Owner: owner, ExpiresAt: now.Add(ttl)})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Slot exists: steal it only if the holder's ttl lapsed.
	result = s.db.WithContext(ctx).
		Model(&lockSlot{}).
		Where("key = ? AND expires_at < ?", key, now).
		Updates(map[string]any{"owner": owner, "expires_at": now.Add(ttl)})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Unlock releases a slot acquired by TryLock. It works from any
// connection; releasing a slot the owner no longer holds is a no-op.
func (s *GormStorage) Unlock(ctx context.Context, key, owner string) error {
	return s.db.WithContext(ctx).
		Where("key = ? AND owner = ?", key, owner).
		Delete(&lockSlot{}).Error
}
