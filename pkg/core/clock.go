package core

import "time"

// Clock supplies the current instant. Cron evaluation, lease arithmetic
// and backoff scheduling all read time through a Clock so that tests can
// run against a frozen instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a preset instant until advanced. It is not safe for
// concurrent mutation; advance it between scheduler ticks.
type FixedClock struct {
	Instant time.Time
}

// Now returns the preset instant.
func (c *FixedClock) Now() time.Time { return c.Instant }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }
