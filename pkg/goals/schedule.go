package goals

import (
	"time"

	"github.com/stefanpenner/anchor/pkg/cadence"
)

// UpdateDeadline sets t's hard deadline. The proposal is rejected with a
// *ValidationError, leaving t untouched, when it falls on a later day than an
// ancestor's or the goal's hard deadline, or on an earlier day than a
// descendant's.
func (e *Engine) UpdateDeadline(t *Task, d time.Time) error {
	if err := e.validateTaskDeadline(t, d); err != nil {
		return err
	}

	t.HardDeadline = timePtr(d)
	if !t.IsRecurring() {
		t.CurrentDeadline = timePtr(d)
	} else if t.CurrentDeadline == nil || t.CurrentDeadline.After(d) {
		t.CurrentDeadline = timePtr(d)
	}
	e.logger.Debug("deadline updated", "task", t.ID, "title", t.Title, "deadline", d)

	e.clampDescendants(t.Subtasks, d)
	e.unblockRepeatingSubtasks(t)
	return nil
}

// UpdateGoalDeadline sets g's hard deadline. It is rejected when any task in
// the tree already has a later hard deadline.
func (e *Engine) UpdateGoalDeadline(g *Goal, d time.Time) error {
	if latest := e.latestHardDeadline(g.Tasks); latest != nil && e.cal.CompareDay(d, *latest) < 0 {
		return &ValidationError{Field: "deadline", Proposed: timePtr(d), Limit: latest,
			Reason: "earlier than a task deadline"}
	}

	g.HardDeadline = timePtr(d)
	if !g.IsRecurring() || g.CurrentDeadline == nil || g.CurrentDeadline.After(d) {
		g.CurrentDeadline = timePtr(d)
	}
	e.logger.Debug("goal deadline updated", "goal", g.ID, "title", g.Title, "deadline", d)

	e.clampDescendants(g.Tasks, d)
	return nil
}

func (e *Engine) validateTaskDeadline(t *Task, d time.Time) error {
	if ceiling := e.hierarchyCeiling(t); e.dayAfter(d, ceiling) {
		return &ValidationError{Field: "deadline", Proposed: timePtr(d), Limit: ceiling,
			Reason: "later than a parent deadline"}
	}
	if latest := e.latestHardDeadline(t.Subtasks); latest != nil && e.cal.CompareDay(d, *latest) < 0 {
		return &ValidationError{Field: "deadline", Proposed: timePtr(d), Limit: latest,
			Reason: "earlier than a subtask deadline"}
	}
	return nil
}

func (e *Engine) latestHardDeadline(tasks []*Task) *time.Time {
	var latest *time.Time
	var visit func([]*Task)
	visit = func(ts []*Task) {
		for _, t := range ts {
			if t.HardDeadline != nil && (latest == nil || e.cal.CompareDay(*t.HardDeadline, *latest) > 0) {
				latest = t.HardDeadline
			}
			visit(t.Subtasks)
		}
	}
	visit(tasks)
	return copyTime(latest)
}

// clampDescendants pulls any active deadline below bound back to it.
func (e *Engine) clampDescendants(tasks []*Task, bound time.Time) {
	for _, t := range tasks {
		if t.CurrentDeadline != nil && e.dayAfter(*t.CurrentDeadline, &bound) {
			t.CurrentDeadline = timePtr(bound)
			e.logger.Debug("deadline clamped to ancestor", "task", t.ID, "deadline", bound)
		}
		e.clampDescendants(t.Subtasks, bound)
	}
}

// unblockRepeatingSubtasks re-arms completed recurring subtasks whose next
// occurrence now fits inside t's active deadline, recursively.
func (e *Engine) unblockRepeatingSubtasks(t *Task) {
	bound := t.Limit()
	for _, s := range t.Subtasks {
		if !s.IsCompleted() || !s.IsRecurring() {
			e.unblockRepeatingSubtasks(s)
			continue
		}
		base := s.CreatedAt
		if s.CurrentDeadline != nil {
			base = *s.CurrentDeadline
		}
		next, ok := e.cal.Next(base, s.Cadence)
		if !ok || e.dayAfter(next, bound) || e.dayAfter(next, s.HardDeadline) {
			continue
		}
		s.CurrentDeadline = timePtr(next)
		e.logger.Debug("subtask unblocked", "task", s.ID, "title", s.Title, "deadline", next)
		e.Reopen(s)
		e.unblockRepeatingSubtasks(s)
	}
}

// UpdateCadence changes t's recurrence and re-derives its active deadline.
// It reports whether anything changed.
func (e *Engine) UpdateCadence(t *Task, c cadence.Cadence) bool {
	old := t.Cadence
	if old.String() == c.String() {
		return false
	}
	t.Cadence = c
	e.logger.Debug("cadence updated", "task", t.ID, "title", t.Title, "from", old, "to", c)

	if !c.IsRecurring() {
		t.CurrentDeadline = copyTime(t.HardDeadline)
		return true
	}
	if t.RecurrenceID == "" {
		t.RecurrenceID = e.newID()
	}

	now := e.clock.Now()
	if t.IsCompleted() {
		e.Reopen(t)
		if t.Goal != nil && t.Goal.IsCompleted() {
			e.markGoalInProgress(t.Goal)
		}
		if t.HardDeadline != nil && t.HardDeadline.Before(now) {
			t.HardDeadline = nil
		}
	}

	var next time.Time
	if !old.IsRecurring() {
		next, _ = e.cal.Next(now, c)
	} else {
		base := now
		if t.CurrentDeadline != nil {
			base = *t.CurrentDeadline
		}
		checkpoint := e.cal.Previous(base, old)
		next, _ = e.cal.Next(checkpoint, c)
	}
	t.CurrentDeadline = timePtr(e.clamp(next, e.effectiveLimit(t)))
	return true
}
