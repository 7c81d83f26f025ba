package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStore matches every *Error.
	ErrStore = errors.New("store failure")
	// ErrNotFound is returned when no goal or task has the requested id.
	ErrNotFound = errors.New("not found")
)

// Error wraps a persistence failure. The in-memory goals are left as they
// were when the operation failed.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) match any *Error.
func (e *Error) Is(target error) bool {
	return target == ErrStore
}
