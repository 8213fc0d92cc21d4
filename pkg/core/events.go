package core

import "time"

// Event is the interface for all scheduler events.
type Event interface {
	eventMarker()
}

// RunClaimed is emitted when a run is leased by a worker.
type RunClaimed struct {
	Run       *Run
	Timestamp time.Time
}

func (*RunClaimed) eventMarker() {}

// RunCompleted is emitted when a run finishes successfully and its row
// is deleted.
type RunCompleted struct {
	Run       *Run
	Duration  time.Duration
	Timestamp time.Time
}

func (*RunCompleted) eventMarker() {}

// RunRetrying is emitted when a failed run is rescheduled with backoff.
type RunRetrying struct {
	Run       *Run
	Attempt   int
	Error     error
	NextRunAt time.Time
	Timestamp time.Time
}

func (*RunRetrying) eventMarker() {}

// RunExhausted is emitted when a run fails with no attempts remaining
// and its row is deleted.
type RunExhausted struct {
	Run       *Run
	Error     error
	Timestamp time.Time
}

func (*RunExhausted) eventMarker() {}

// RunSkipped is emitted when filters veto a claimed run. The row is left
// in place and re-evaluated on a later claim.
type RunSkipped struct {
	Run       *Run
	Timestamp time.Time
}

func (*RunSkipped) eventMarker() {}

// RunsPruned is emitted after abandoned rows are deleted.
type RunsPruned struct {
	Count     int64
	Timestamp time.Time
}

func (*RunsPruned) eventMarker() {}
