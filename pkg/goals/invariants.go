package goals

import (
	"errors"
	"fmt"
	"time"
)

// CheckInvariants verifies g's tree against the engine's structural rules and
// returns every violation joined, each wrapping ErrInvariant. A nil result
// means the tree is consistent.
func (e *Engine) CheckInvariants(g *Goal) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
	}

	if err := e.checkState(g.State, g.CompletedAt, g.HardDeadline); err != "" {
		fail("goal %s: %s", g.ID, err)
	}
	if g.CurrentDeadline != nil && e.dayAfter(*g.CurrentDeadline, g.HardDeadline) {
		fail("goal %s: current deadline after hard deadline", g.ID)
	}

	g.Walk(func(t *Task) bool {
		if t.Goal != g {
			fail("task %s: goal back-reference is stale", t.ID)
		}
		for _, c := range t.Subtasks {
			if c.Parent != t {
				fail("task %s: parent back-reference is stale", c.ID)
			}
		}
		if err := e.checkState(t.State, t.CompletedAt, t.HardDeadline); err != "" {
			fail("task %s: %s", t.ID, err)
		}
		if !t.IsRecurring() && !sameInstant(t.CurrentDeadline, t.HardDeadline) {
			fail("task %s: one-shot current deadline differs from hard deadline", t.ID)
		}
		if t.CurrentDeadline != nil {
			if e.dayAfter(*t.CurrentDeadline, t.HardDeadline) {
				fail("task %s: current deadline after hard deadline", t.ID)
			}
			if ceiling := e.hierarchyCeiling(t); e.dayAfter(*t.CurrentDeadline, ceiling) {
				fail("task %s: current deadline after ancestor deadline", t.ID)
			}
		}
		return true
	})
	return errors.Join(errs...)
}

func (e *Engine) checkState(s CompletionState, completedAt, hard *time.Time) string {
	switch s {
	case StateInProgress:
		if completedAt != nil {
			return "in progress with a completion time"
		}
	case StateCompletedOnTime:
		if completedAt == nil {
			return "completed without a completion time"
		}
	case StateCompletedLate:
		if completedAt == nil || hard == nil {
			return "late without a completion time and hard deadline"
		}
		if !e.dayAfter(*completedAt, hard) {
			return "late but completed on or before the hard deadline"
		}
	default:
		return fmt.Sprintf("unknown state %q", s)
	}
	return ""
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
