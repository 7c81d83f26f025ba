package goals

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for engine operations.
var (
	ErrBlocked    = errors.New("task has incomplete subtasks due before it")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("node not found")
	ErrInvariant  = errors.New("invariant violated")
)

// ValidationError rejects a proposed change before anything is mutated.
type ValidationError struct {
	Field    string
	Proposed *time.Time
	Limit    *time.Time
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Proposed != nil && e.Limit != nil {
		return fmt.Sprintf("%s %s rejected: %s (limit %s)", e.Field,
			e.Proposed.Format("2006-01-02"), e.Reason, e.Limit.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s rejected: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
