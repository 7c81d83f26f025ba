package goals

import (
	"slices"
	"time"

	"github.com/stefanpenner/anchor/pkg/cadence"
)

// VirtualGoal is a goal-shaped snapshot of either a real goal or a task
// subtree. It is copied by value when built and never written back; to act on
// one, call ToggleProjection and use the fresh snapshot it returns.
type VirtualGoal struct {
	ID              string
	GoalID          string
	SourceTaskID    string
	Virtual         bool
	Title           string
	Categories      []Category
	Motivation      string
	Tier            int
	Cadence         cadence.Cadence
	HardDeadline    *time.Time
	CurrentDeadline *time.Time
	Completed       bool
	State           CompletionState
	Tasks           []*Task
}

// Deadline is the snapshot's active deadline: current, else hard.
func (v VirtualGoal) Deadline() *time.Time {
	return firstSet(v.CurrentDeadline, v.HardDeadline)
}

// ProjectGoal views a real goal through the same shape as a projected task.
func (e *Engine) ProjectGoal(g *Goal) VirtualGoal {
	return VirtualGoal{
		ID:              g.ID,
		GoalID:          g.ID,
		Title:           g.Title,
		Categories:      slices.Clone(g.Categories),
		Motivation:      g.Motivation,
		Cadence:         g.Cadence,
		HardDeadline:    copyTime(g.HardDeadline),
		CurrentDeadline: copyTime(g.CurrentDeadline),
		Completed:       g.IsCompleted(),
		State:           g.State,
		Tasks:           ActiveRootTasks(g),
	}
}

// Project views t as a standalone goal whose tasks are t's active subtasks.
// Categories come from the owning goal.
func (e *Engine) Project(t *Task) VirtualGoal {
	v := VirtualGoal{
		ID:              t.ID,
		SourceTaskID:    t.ID,
		Virtual:         true,
		Title:           t.Title,
		Motivation:      "Sub level of " + t.Title,
		Tier:            t.Tier,
		Cadence:         t.Cadence,
		HardDeadline:    copyTime(t.HardDeadline),
		CurrentDeadline: copyTime(t.Limit()),
		Completed:       t.IsCompleted(),
		State:           t.State,
		Tasks:           ActiveSubtasks(t),
	}
	if t.Goal != nil {
		v.GoalID = t.Goal.ID
		v.Categories = slices.Clone(t.Goal.Categories)
	}
	return v
}

// ToggleProjection applies a completion toggle made on v to the node it was
// projected from inside g, and returns a fresh projection of that node.
func (e *Engine) ToggleProjection(g *Goal, v VirtualGoal) (VirtualGoal, error) {
	if !v.Virtual {
		if g.ID != v.ID {
			return v, ErrNotFound
		}
		err := e.ToggleGoal(g)
		return e.ProjectGoal(g), err
	}
	t := g.FindTask(v.SourceTaskID)
	if t == nil {
		return v, ErrNotFound
	}
	err := e.ToggleTask(t)
	return e.Project(t), err
}

// Reproject rebuilds v from the live tree, or reports false if its source
// node no longer exists in g.
func (e *Engine) Reproject(g *Goal, v VirtualGoal) (VirtualGoal, bool) {
	if !v.Virtual {
		if g.ID != v.ID {
			return v, false
		}
		return e.ProjectGoal(g), true
	}
	t := g.FindTask(v.SourceTaskID)
	if t == nil {
		return v, false
	}
	return e.Project(t), true
}
