package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidJobName   = errors.New("cronq: invalid job name (must be alphanumeric, start with letter)")
	ErrJobNameTooLong   = errors.New("cronq: job name too long")
	ErrInvalidQueueName = errors.New("cronq: invalid queue name")
	ErrQueueNameTooLong = errors.New("cronq: queue name too long")
	ErrArgsTooLarge     = errors.New("cronq: job arguments exceed size limit")
	ErrUniqueKeyTooLong = errors.New("cronq: unique key exceeds maximum length")
)

// ErrPostDispatchConflict is returned when retiming a dispatched run that
// has already been claimed by a worker or no longer exists.
var ErrPostDispatchConflict = errors.New("cronq: run already claimed")

// DefinitionError reports a job definition that cannot be executed:
// a missing name, a missing handler, or an identifier that resolves to
// nothing at execution time.
type DefinitionError struct {
	Name   string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("cronq: job definition: %s", e.Reason)
	}
	return fmt.Sprintf("cronq: job %q: %s", e.Name, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}
