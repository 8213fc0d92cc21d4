package core

import (
	"time"
)

// Run is one persisted execution attempt of a job. Rows are created by
// the dispatcher (on-demand dispatch or cron materialization), leased
// and attempt-bumped by the claim engine, rescheduled on retry, and
// deleted on success, retry exhaustion, or prune.
type Run struct {
	ID          int64      `gorm:"primaryKey;autoIncrement;index:idx_runs_due,priority:3;index:idx_runs_name_due,priority:3"`
	Name        string     `gorm:"size:255;not null;index:idx_runs_name_due,priority:1"`
	Queue       string     `gorm:"size:255;not null;default:'default'"`
	Priority    int        `gorm:"not null;default:100;index:idx_runs_due,priority:2"`
	RunAt       time.Time  `gorm:"precision:6;not null;index:idx_runs_due,priority:1;index:idx_runs_name_due,priority:2"`
	LockedUntil *time.Time `gorm:"precision:6"`
	Attempts    uint16     `gorm:"not null;default:0"`
	Args        []byte     `gorm:"type:bytes"`
	UniqueKey   *string    `gorm:"size:255;uniqueIndex"`
}

// TableName sets the table name for GORM.
func (Run) TableName() string {
	return "runs"
}

// ClaimableAt reports whether the row is due and unleased at the given
// instant. A lease that has expired no longer protects the row.
func (r *Run) ClaimableAt(now time.Time) bool {
	if r.RunAt.After(now) {
		return false
	}
	return r.LockedUntil == nil || !r.LockedUntil.After(now)
}
