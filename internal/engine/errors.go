package engine

import (
	"fmt"

	"changeplan/internal/domain"
)

// NotFoundError reports an update/delete probe against an id that does not
// exist in the table. No mutation is attempted.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record with id %q not found in table %q", e.ID, e.Table)
}

// IntegrityError wraps a constraint violation (uniqueness, check, foreign
// key) surfaced by the store while probing. Distinct from a validation error:
// the shape was fine but the mutation would fail structurally.
type IntegrityError struct {
	Table string
	Op    domain.Operation
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity constraint violation: %v", e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// MalformedInputError reports a payload that cannot be interpreted as a
// structured record.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "malformed input: " + e.Reason
}

// ConnectionError reports that the store was unreachable or the probe's
// transaction could not be established. Fatal for the call only.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
