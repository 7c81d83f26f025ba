package goals

import "time"

// maxCompletionRounds bounds how many cycles CompleteSubtree will advance a
// recurring task that has no deadline to stop it.
const maxCompletionRounds = 256

// ToggleTask flips t between in progress and completed. Completing is gated
// by CanBeCompleted and returns ErrBlocked when denied; a recurring task
// advances its cycle instead of plainly completing.
func (e *Engine) ToggleTask(t *Task) error {
	if t.IsCompleted() {
		e.Reopen(t)
		return nil
	}
	if !e.CanBeCompleted(t) {
		return ErrBlocked
	}
	if t.IsRecurring() {
		e.Advance(t)
	} else {
		e.Complete(t)
	}
	return nil
}

// Complete marks t completed for its current cycle and propagates upward.
func (e *Engine) Complete(t *Task) {
	e.complete(t)
	e.notifyParent(t)
}

// Reopen moves t back to in progress and re-evaluates its ancestors and goal.
// It is allowed from either terminal state.
func (e *Engine) Reopen(t *Task) {
	e.markInProgress(t)
	e.logger.Debug("task reopened", "task", t.ID, "title", t.Title)
	if t.Parent != nil {
		e.ChildWasUnchecked(t.Parent)
	}
	e.CheckGoal(t.Goal)
}

// Advance closes t's current cycle. When another occurrence fits before the
// hierarchy limit, the active deadline moves to it and t reopens; when only a
// partial cycle fits, the deadline is clamped to the limit; otherwise t
// completes for good. Non-recurring tasks simply complete.
func (e *Engine) Advance(t *Task) {
	if !t.IsRecurring() {
		e.Complete(t)
		return
	}

	e.advanceCycle(t)
	e.notifyParent(t)
}

func (e *Engine) advanceCycle(t *Task) {
	base := e.cycleBase(t)

	if t.HardDeadline != nil && e.cal.SameDay(base, *t.HardDeadline) {
		e.terminate(t, "reached hard deadline")
		return
	}

	next, ok := e.cal.Next(base, t.Cadence)
	if !ok {
		e.terminate(t, "no next boundary")
		return
	}

	limit := e.effectiveLimit(t)
	if limit != nil && e.cal.CompareDay(next, *limit) >= 0 {
		if e.cal.CompareDay(base, *limit) < 0 {
			t.CurrentDeadline = copyTime(limit)
			e.markInProgress(t)
			e.logger.Debug("cycle clamped to limit", "task", t.ID, "title", t.Title, "deadline", *limit)
			e.cascade(t, *limit)
			return
		}
		e.terminate(t, "limit reached")
		return
	}

	t.CurrentDeadline = timePtr(next)
	e.markInProgress(t)
	e.logger.Debug("cycle advanced", "task", t.ID, "title", t.Title, "deadline", next)
	e.cascade(t, next)
}

func (e *Engine) cycleBase(t *Task) time.Time {
	if b := t.Limit(); b != nil {
		return *b
	}
	return e.clock.Now()
}

func (e *Engine) terminate(t *Task, reason string) {
	e.complete(t)
	e.logger.Debug("cycle terminated", "task", t.ID, "title", t.Title, "reason", reason)
}

// cascade pulls completed recurring children of t into t's new cycle when
// their own next boundary fits inside bound. Children whose next occurrence
// falls beyond bound stay completed and wait for a later cycle of t;
// non-recurring children are left alone.
func (e *Engine) cascade(t *Task, bound time.Time) {
	for _, c := range t.Subtasks {
		if !c.IsCompleted() || !c.IsRecurring() {
			continue
		}
		next, ok := e.cal.Next(e.cycleBase(c), c.Cadence)
		if !ok {
			continue
		}
		if e.cal.CompareDay(next, bound) <= 0 {
			e.Advance(c)
		}
	}
}

// ToggleGoal flips g between in progress and completed. Completing requires
// every root task to be completed. A recurring goal advances its own cycle
// and pulls its root tasks along.
func (e *Engine) ToggleGoal(g *Goal) error {
	if g.IsCompleted() {
		e.markGoalInProgress(g)
		e.logger.Debug("goal reopened", "goal", g.ID, "title", g.Title)
		return nil
	}
	for _, t := range g.Tasks {
		if !t.IsCompleted() {
			return ErrBlocked
		}
	}
	if !g.IsRecurring() {
		e.finishGoal(g)
		return nil
	}
	e.advanceGoal(g)
	return nil
}

func (e *Engine) finishGoal(g *Goal) {
	if g.HardDeadline != nil {
		g.CurrentDeadline = copyTime(g.HardDeadline)
	}
	e.completeGoal(g)
}

func (e *Engine) advanceGoal(g *Goal) {
	base := g.StartDate
	if g.CurrentDeadline != nil {
		base = *g.CurrentDeadline
	}

	limit := g.HardDeadline
	if limit != nil && e.cal.CompareDay(base, *limit) >= 0 {
		e.finishGoal(g)
		return
	}

	next, ok := e.cal.Next(base, g.Cadence)
	if !ok {
		e.finishGoal(g)
		return
	}

	// The final bounded cycle leaves root tasks as they are.
	if limit != nil && e.cal.CompareDay(next, *limit) >= 0 {
		g.CurrentDeadline = copyTime(limit)
		e.markGoalInProgress(g)
		e.logger.Debug("goal cycle clamped to limit", "goal", g.ID, "title", g.Title, "deadline", *limit)
		return
	}
	g.CurrentDeadline = timePtr(next)
	e.markGoalInProgress(g)
	e.logger.Debug("goal cycle advanced", "goal", g.ID, "title", g.Title, "deadline", next)

	for _, t := range g.Tasks {
		if !t.IsCompleted() {
			continue
		}
		if t.IsRecurring() {
			e.Advance(t)
		} else {
			e.Reopen(t)
		}
	}
}

// CompleteSubtree drives t and all of its descendants to truly completed,
// advancing recurring tasks through their remaining cycles.
func (e *Engine) CompleteSubtree(t *Task) {
	e.completeFully(t)
	e.notifyParent(t)
}

func (e *Engine) completeFully(t *Task) {
	for _, c := range t.Subtasks {
		e.completeFully(c)
	}
	if e.IsTrulyCompleted(t) {
		return
	}
	if !t.IsRecurring() {
		e.complete(t)
		return
	}

	for round := 0; round < maxCompletionRounds && !e.IsTrulyCompleted(t); round++ {
		if !t.IsCompleted() {
			e.advanceCycle(t)
		}
		for _, c := range t.Subtasks {
			if !e.IsTrulyCompleted(c) {
				e.completeFully(c)
			}
		}
	}
	if !t.IsCompleted() {
		e.complete(t)
	}
}
