// Package goals is the cycle-management engine for goal trees: completion
// state, recurring deadlines and the propagation rules that keep a tree of
// tasks consistent with its goal.
package goals

import (
	"time"

	"github.com/stefanpenner/anchor/pkg/cadence"
)

// CompletionState is the per-cycle state of a goal or task.
type CompletionState string

const (
	StateInProgress      CompletionState = "in-progress"
	StateCompletedOnTime CompletionState = "completed-on-time"
	StateCompletedLate   CompletionState = "completed-late"
)

// IsCompleted reports whether s is one of the terminal states.
func (s CompletionState) IsCompleted() bool {
	return s == StateCompletedOnTime || s == StateCompletedLate
}

// Category tags a goal.
type Category string

const (
	CategoryHealth   Category = "health"
	CategoryCareer   Category = "career"
	CategoryPersonal Category = "personal"
	CategoryFinance  Category = "finance"
	CategoryLearning Category = "learning"
)

// Difficulty is an ordered effort estimate.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyDifficult Difficulty = "difficult"
)

// Rank orders difficulties: easy < medium < difficult.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyDifficult:
		return 3
	default:
		return 0
	}
}

// HabitBinding anchors a task to a daily routine. It is descriptive only.
type HabitBinding struct {
	Label string     `yaml:"label"`
	Time  *time.Time `yaml:"time,omitempty"`
}

// Goal is the root of a task tree.
type Goal struct {
	ID              string          `yaml:"id"`
	Title           string          `yaml:"title"`
	Categories      []Category      `yaml:"categories,omitempty"`
	Motivation      string          `yaml:"-"`
	StartDate       time.Time       `yaml:"start_date"`
	State           CompletionState `yaml:"state"`
	HardDeadline    *time.Time      `yaml:"hard_deadline,omitempty"`
	CurrentDeadline *time.Time      `yaml:"current_deadline,omitempty"`
	Cadence         cadence.Cadence `yaml:"cadence"`
	CompletedAt     *time.Time      `yaml:"completed_at,omitempty"`
	Tasks           []*Task         `yaml:"tasks,omitempty"`
}

// Task is a node beneath a goal. Subtasks are owned; Parent and Goal are
// back-references used for traversal only.
type Task struct {
	ID              string          `yaml:"id"`
	RecurrenceID    string          `yaml:"recurrence_id,omitempty"`
	Title           string          `yaml:"title"`
	State           CompletionState `yaml:"state"`
	Difficulty      Difficulty      `yaml:"difficulty"`
	Cadence         cadence.Cadence `yaml:"cadence"`
	Tier            int             `yaml:"tier"`
	HardDeadline    *time.Time      `yaml:"hard_deadline,omitempty"`
	CurrentDeadline *time.Time      `yaml:"current_deadline,omitempty"`
	CreatedAt       time.Time       `yaml:"created_at"`
	CompletedAt     *time.Time      `yaml:"completed_at,omitempty"`
	Habit           *HabitBinding   `yaml:"habit,omitempty"`
	Subtasks        []*Task         `yaml:"subtasks,omitempty"`

	Parent *Task `yaml:"-"`
	Goal   *Goal `yaml:"-"`
}

// Node is the behaviour goals and tasks share.
type Node interface {
	NodeID() string
	NodeTitle() string
	IsCompleted() bool
	// Limit is the deadline of the active cycle: current, else hard.
	Limit() *time.Time
	Children() []*Task
}

var (
	_ Node = (*Goal)(nil)
	_ Node = (*Task)(nil)
)

func (g *Goal) NodeID() string    { return g.ID }
func (g *Goal) NodeTitle() string { return g.Title }
func (g *Goal) IsCompleted() bool { return g.State.IsCompleted() }
func (g *Goal) Children() []*Task { return g.Tasks }
func (g *Goal) Limit() *time.Time { return firstSet(g.CurrentDeadline, g.HardDeadline) }
func (t *Task) NodeID() string    { return t.ID }
func (t *Task) NodeTitle() string { return t.Title }
func (t *Task) IsCompleted() bool { return t.State.IsCompleted() }
func (t *Task) Children() []*Task { return t.Subtasks }
func (t *Task) Limit() *time.Time { return firstSet(t.CurrentDeadline, t.HardDeadline) }
func (t *Task) IsRecurring() bool { return t.Cadence.IsRecurring() }
func (g *Goal) IsRecurring() bool { return g.Cadence.IsRecurring() }
func (t *Task) IsRoot() bool      { return t.Parent == nil }

func (t *Task) recurrenceKey() string {
	if t.RecurrenceID != "" {
		return t.RecurrenceID
	}
	return t.ID
}

// Link restores the Parent and Goal back-references of every task in g's
// tree. Stores call it after decoding.
func (g *Goal) Link() {
	for _, t := range g.Tasks {
		t.Parent = nil
		linkTask(t, g)
	}
}

func linkTask(t *Task, g *Goal) {
	t.Goal = g
	for _, c := range t.Subtasks {
		c.Parent = t
		linkTask(c, g)
	}
}

// Walk visits every task of g depth-first, parents before children. It stops
// early when fn returns false.
func (g *Goal) Walk(fn func(*Task) bool) {
	for _, t := range g.Tasks {
		if !t.walk(fn) {
			return
		}
	}
}

func (t *Task) walk(fn func(*Task) bool) bool {
	if !fn(t) {
		return false
	}
	for _, c := range t.Subtasks {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// FindTask returns the task with the given id anywhere in g's tree.
func (g *Goal) FindTask(id string) *Task {
	var found *Task
	g.Walk(func(t *Task) bool {
		if t.ID == id {
			found = t
			return false
		}
		return true
	})
	return found
}

// Ancestors returns t's parent chain, nearest first.
func (t *Task) Ancestors() []*Task {
	var out []*Task
	for p := t.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

func firstSet(ts ...*time.Time) *time.Time {
	for _, t := range ts {
		if t != nil {
			return t
		}
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
