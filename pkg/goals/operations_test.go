package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/anchor/pkg/cadence"
)

func TestNewGoal(t *testing.T) {
	f := newFixture(t, morning(2))
	g, err := f.e.NewGoal(GoalSpec{
		Title:        "  Run a marathon ",
		Categories:   []Category{CategoryHealth},
		Motivation:   "Because it is there.",
		HardDeadline: ptr(day(20)),
		Tasks: []TaskSpec{
			{Title: "buy shoes", HardDeadline: ptr(day(30))},
			{Title: "run", Cadence: cadence.Daily, Difficulty: DifficultyDifficult},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Run a marathon", g.Title)
	assert.Equal(t, StateInProgress, g.State)
	assert.Equal(t, morning(2), g.StartDate)
	assertDay(t, day(20), g.CurrentDeadline)
	require.Len(t, g.Tasks, 2)

	shoes, run := g.Tasks[0], g.Tasks[1]
	assertDay(t, day(20), shoes.HardDeadline)
	assertDay(t, day(20), shoes.CurrentDeadline)
	assert.Equal(t, DifficultyMedium, shoes.Difficulty)
	assert.Equal(t, cadence.Never, shoes.Cadence)
	assert.Empty(t, shoes.RecurrenceID)

	assert.Equal(t, 1, run.Tier)
	assert.NotEmpty(t, run.RecurrenceID)
	assert.NotEqual(t, run.ID, run.RecurrenceID)
	assertDay(t, day(2), run.CurrentDeadline)
	assert.Same(t, g, run.Goal)
	assert.Nil(t, run.Parent)
	assert.NoError(t, f.e.CheckInvariants(g))
}

func TestNewGoalRejectsEmptyTitles(t *testing.T) {
	f := newFixture(t, morning(1))

	_, err := f.e.NewGoal(GoalSpec{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.e.NewGoal(GoalSpec{Title: "ok", Tasks: []TaskSpec{{Title: ""}}})
	assert.ErrorIs(t, err, ErrValidation)

	g := f.goal(t, GoalSpec{})
	_, err = f.e.AddRootTask(g, TaskSpec{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, g.Tasks)
}

func TestAddSubtask(t *testing.T) {
	f := newFixture(t, morning(1))
	g := f.goal(t, GoalSpec{HardDeadline: ptr(day(20))})
	parent := f.root(t, g, TaskSpec{Title: "parent", HardDeadline: ptr(day(10))})

	child := f.sub(t, parent, TaskSpec{Title: "child", HardDeadline: ptr(day(15))})
	assert.Equal(t, 2, child.Tier)
	assert.Same(t, parent, child.Parent)
	assert.Same(t, g, child.Goal)
	assertDay(t, day(10), child.HardDeadline)
	assertDay(t, day(10), child.CurrentDeadline)

	grandchild := f.sub(t, child, TaskSpec{Title: "grandchild", Cadence: cadence.Weekly})
	assert.Equal(t, 3, grandchild.Tier)
	assertDay(t, day(1), grandchild.CurrentDeadline)
	assert.Equal(t, []*Task{child, parent}, grandchild.Ancestors())
	assert.Same(t, grandchild, g.FindTask(grandchild.ID))
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t, morning(1))
	g := f.goal(t, GoalSpec{})
	parent := f.root(t, g, TaskSpec{Title: "parent", HardDeadline: ptr(day(10))})
	child := f.sub(t, parent, TaskSpec{Title: "child", HardDeadline: ptr(day(10))})
	other := f.root(t, g, TaskSpec{Title: "other"})

	assert.False(t, f.e.CanBeCompleted(parent))
	require.NoError(t, f.e.DeleteTask(child))
	assert.Empty(t, parent.Subtasks)
	assert.Nil(t, child.Parent)
	assert.Nil(t, g.FindTask(child.ID))
	assert.True(t, f.e.CanBeCompleted(parent))

	assert.ErrorIs(t, f.e.DeleteTask(child), ErrNotFound)

	require.NoError(t, f.e.DeleteTask(parent))
	assert.Equal(t, []*Task{other}, g.Tasks)
}

func TestDeleteLastIncompleteTaskLetsGoalComplete(t *testing.T) {
	f := newFixture(t, morning(1))
	g := f.goal(t, GoalSpec{})
	done := f.root(t, g, TaskSpec{Title: "done"})
	pending := f.root(t, g, TaskSpec{Title: "pending"})
	require.NoError(t, f.e.ToggleTask(done))
	assert.ErrorIs(t, f.e.ToggleGoal(g), ErrBlocked)

	require.NoError(t, f.e.DeleteTask(pending))
	require.NoError(t, f.e.ToggleGoal(g))
	assert.True(t, g.IsCompleted())
}

func TestLinkRestoresBackReferences(t *testing.T) {
	child := &Task{ID: "c"}
	root := &Task{ID: "r", Subtasks: []*Task{child}}
	g := &Goal{ID: "g", Tasks: []*Task{root}}

	g.Link()
	assert.Same(t, g, root.Goal)
	assert.Nil(t, root.Parent)
	assert.Same(t, root, child.Parent)
	assert.Same(t, g, child.Goal)
	assert.True(t, root.IsRoot())
	assert.False(t, child.IsRoot())
}
