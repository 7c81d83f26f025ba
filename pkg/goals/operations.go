package goals

import (
	"slices"
	"strings"
	"time"

	"github.com/stefanpenner/anchor/pkg/cadence"
)

// GoalSpec describes a goal to create.
type GoalSpec struct {
	Title        string
	Categories   []Category
	Motivation   string
	StartDate    time.Time
	HardDeadline *time.Time
	Cadence      cadence.Cadence
	Tasks        []TaskSpec
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	Title        string
	Difficulty   Difficulty
	Cadence      cadence.Cadence
	HardDeadline *time.Time
	Habit        *HabitBinding
}

// NewGoal builds a goal and its initial root tasks. Task deadlines later than
// the goal's are pulled back to it.
func (e *Engine) NewGoal(spec GoalSpec) (*Goal, error) {
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	for _, ts := range spec.Tasks {
		if strings.TrimSpace(ts.Title) == "" {
			return nil, &ValidationError{Field: "task title", Reason: "must not be empty"}
		}
	}

	start := spec.StartDate
	if start.IsZero() {
		start = e.clock.Now()
	}
	g := &Goal{
		ID:           e.newID(),
		Title:        title,
		Categories:   slices.Clone(spec.Categories),
		Motivation:   spec.Motivation,
		StartDate:    start,
		State:        StateInProgress,
		HardDeadline: copyTime(spec.HardDeadline),
		Cadence:      normalizeCadence(spec.Cadence),
	}
	if !g.IsRecurring() {
		g.CurrentDeadline = copyTime(g.HardDeadline)
	}

	for _, ts := range spec.Tasks {
		t := e.newTask(ts, 1)
		if t.HardDeadline != nil {
			t.HardDeadline = timePtr(e.clamp(*t.HardDeadline, g.HardDeadline))
		}
		e.attachRoot(g, t)
	}
	e.logger.Debug("goal created", "goal", g.ID, "title", g.Title, "tasks", len(g.Tasks))
	return g, nil
}

// AddRootTask appends a tier-1 task to g, reopening g if it was completed.
func (e *Engine) AddRootTask(g *Goal, spec TaskSpec) (*Task, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	t := e.newTask(spec, 1)
	if t.HardDeadline != nil {
		t.HardDeadline = timePtr(e.clamp(*t.HardDeadline, g.HardDeadline))
	}
	e.attachRoot(g, t)
	if g.IsCompleted() {
		e.markGoalInProgress(g)
		e.logger.Debug("goal reopened by new task", "goal", g.ID, "task", t.ID)
	}
	return t, nil
}

// AddSubtask appends a child to parent one tier deeper. A proposed deadline
// beyond the hierarchy's is pulled back to it, and the parent is re-evaluated.
func (e *Engine) AddSubtask(parent *Task, spec TaskSpec) (*Task, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	t := e.newTask(spec, parent.Tier+1)
	t.Parent = parent
	t.Goal = parent.Goal
	if t.HardDeadline != nil {
		t.HardDeadline = timePtr(e.clamp(*t.HardDeadline, e.hierarchyCeiling(t)))
	}
	e.initCurrentDeadline(t)
	parent.Subtasks = append(parent.Subtasks, t)
	e.logger.Debug("subtask added", "task", t.ID, "parent", parent.ID, "tier", t.Tier)

	e.ChildDidChange(parent)
	return t, nil
}

// DeleteTask detaches t and its descendants from the tree and re-evaluates
// what remains above it.
func (e *Engine) DeleteTask(t *Task) error {
	parent, g := t.Parent, t.Goal
	switch {
	case parent != nil:
		idx := slices.Index(parent.Subtasks, t)
		if idx < 0 {
			return ErrNotFound
		}
		parent.Subtasks = slices.Delete(parent.Subtasks, idx, idx+1)
	case g != nil:
		idx := slices.Index(g.Tasks, t)
		if idx < 0 {
			return ErrNotFound
		}
		g.Tasks = slices.Delete(g.Tasks, idx, idx+1)
	default:
		return ErrNotFound
	}
	t.Parent, t.Goal = nil, nil
	e.logger.Debug("task deleted", "task", t.ID, "title", t.Title)

	if parent != nil {
		e.ChildDidChange(parent)
	} else {
		e.CheckGoal(g)
	}
	return nil
}

func (e *Engine) newTask(spec TaskSpec, tier int) *Task {
	difficulty := spec.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	t := &Task{
		ID:           e.newID(),
		Title:        strings.TrimSpace(spec.Title),
		State:        StateInProgress,
		Difficulty:   difficulty,
		Cadence:      normalizeCadence(spec.Cadence),
		Tier:         tier,
		HardDeadline: copyTime(spec.HardDeadline),
		CreatedAt:    e.clock.Now(),
		Habit:        spec.Habit,
	}
	if t.IsRecurring() {
		t.RecurrenceID = e.newID()
	}
	return t
}

func (e *Engine) attachRoot(g *Goal, t *Task) {
	t.Goal = g
	t.Parent = nil
	e.initCurrentDeadline(t)
	g.Tasks = append(g.Tasks, t)
}

// initCurrentDeadline opens the first cycle: a recurring task is first due at
// the end of its creation day, a one-shot task at its hard deadline.
func (e *Engine) initCurrentDeadline(t *Task) {
	if !t.IsRecurring() {
		t.CurrentDeadline = copyTime(t.HardDeadline)
		return
	}
	first := e.cal.EndOfDay(t.CreatedAt)
	t.CurrentDeadline = timePtr(e.clamp(first, e.effectiveLimit(t)))
}

func normalizeCadence(c cadence.Cadence) cadence.Cadence {
	if c == "" {
		return cadence.Never
	}
	return c
}
