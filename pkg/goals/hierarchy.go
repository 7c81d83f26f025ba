package goals

// IsTrulyCompleted reports whether t and every active descendant are
// completed.
func (e *Engine) IsTrulyCompleted(t *Task) bool {
	return t.IsCompleted() && e.AllDescendantsCompleted(t)
}

// AllDescendantsCompleted reports whether every active subtask of t is truly
// completed. A leaf trivially qualifies.
func (e *Engine) AllDescendantsCompleted(t *Task) bool {
	for _, c := range ActiveSubtasks(t) {
		if !e.IsTrulyCompleted(c) {
			return false
		}
	}
	return true
}

// IsDeadlineExceedingParent reports whether t's active deadline falls on a
// later day than its parent's. Such a task legitimately runs past the parent
// and does not block it. Tasks without a deadline, or under a parent without
// one, never exceed.
func (e *Engine) IsDeadlineExceedingParent(t *Task) bool {
	if t.Parent == nil {
		return false
	}
	mine := t.Limit()
	if mine == nil {
		return false
	}
	return e.dayAfter(*mine, t.Parent.Limit())
}

// CanBeCompleted gates a manual completion of t. A task with no incomplete
// descendants may always complete. Otherwise every incomplete child must be
// exempt by running past t's own deadline; a child due on or before that day,
// or with no deadline at all, blocks.
func (e *Engine) CanBeCompleted(t *Task) bool {
	if len(t.Subtasks) == 0 || e.AllDescendantsCompleted(t) {
		return true
	}
	own := t.Limit()
	for _, c := range ActiveSubtasks(t) {
		if e.IsTrulyCompleted(c) {
			continue
		}
		cl := c.Limit()
		if cl == nil {
			return false
		}
		if !e.dayAfter(*cl, own) {
			return false
		}
	}
	return true
}

// ChildDidChange re-evaluates t after one of its children changed state. If
// an incomplete child that does not run past t's deadline exists, a completed
// t is reopened. The check then continues up to the goal.
func (e *Engine) ChildDidChange(t *Task) {
	if len(t.Subtasks) > 0 && t.IsCompleted() && e.hasBlockingChild(t) {
		e.markInProgress(t)
		e.logger.Debug("task reopened by incomplete child", "task", t.ID, "title", t.Title)
	}
	e.notifyParent(t)
}

func (e *Engine) hasBlockingChild(t *Task) bool {
	for _, c := range ActiveSubtasks(t) {
		if !e.IsTrulyCompleted(c) && !e.IsDeadlineExceedingParent(c) {
			return true
		}
	}
	return false
}

// ChildWasUnchecked re-evaluates t after a descendant was manually reopened.
// A completed t whose descendants are no longer all completed is reopened and
// the check recurses upward. The owning goal is always re-checked.
func (e *Engine) ChildWasUnchecked(t *Task) {
	if t.IsCompleted() && !e.AllDescendantsCompleted(t) {
		e.markInProgress(t)
		e.logger.Debug("task reopened by unchecked descendant", "task", t.ID, "title", t.Title)
		if t.Parent != nil {
			e.ChildWasUnchecked(t.Parent)
		}
	}
	e.CheckGoal(t.Goal)
}

// CheckGoal reopens a completed goal that has an incomplete root task.
func (e *Engine) CheckGoal(g *Goal) {
	if g == nil || !g.IsCompleted() {
		return
	}
	for _, t := range g.Tasks {
		if !t.IsCompleted() {
			e.markGoalInProgress(g)
			e.logger.Debug("goal reopened by incomplete task", "goal", g.ID, "task", t.ID)
			return
		}
	}
}

// notifyParent continues upward propagation from t: its parent task is
// re-evaluated, or for a root task the owning goal.
func (e *Engine) notifyParent(t *Task) {
	if t.Parent != nil {
		e.ChildDidChange(t.Parent)
		return
	}
	e.CheckGoal(t.Goal)
}
