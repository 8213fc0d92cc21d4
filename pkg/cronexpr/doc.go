// Package cronexpr parses and evaluates cron expressions.
//
// Both 5-field (minute precision, seconds fixed at 0) and 6-field
// (second precision) expressions are supported. Each field expands into
// a sorted set with a bitmask for O(1) membership tests, which lets
// Next jump field by field instead of scanning second by second.
//
// Day-of-month and day-of-week follow classic cron semantics: when both
// are wildcarded any day matches, when exactly one is wildcarded the
// other governs, and when both are restricted a day matching either
// satisfies the schedule.
package cronexpr
