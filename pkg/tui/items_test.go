package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/goals"
)

func dayOf(n int) *time.Time {
	t := time.Date(2025, time.January, n, 23, 59, 59, 0, time.UTC)
	return &t
}

func TestFlattenWithStatusGroups(t *testing.T) {
	e := goals.New(goals.WithCalendar(cadence.NewCalendar(time.UTC)), goals.WithLogger(discard))
	now := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

	late := &goals.Goal{ID: "late", Title: "Late", State: goals.StateInProgress, HardDeadline: dayOf(5), CurrentDeadline: dayOf(5)}
	open := &goals.Goal{ID: "open", Title: "Open", State: goals.StateInProgress, HardDeadline: dayOf(20)}
	done := &goals.Goal{ID: "done", Title: "Done", State: goals.StateCompletedOnTime, HardDeadline: dayOf(2)}

	items := FlattenWithStatusGroups(e, []*goals.Goal{done, open, late}, now, map[string]bool{})

	var names []string
	for _, item := range items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{SectionOverdue, "Late", SectionInProgress, "Open", SectionCompleted, "Done"}, names)
	assert.True(t, items[0].IsSectionHeader)
	assert.Nil(t, items[0].Node())
	assert.Equal(t, items[0].ID, items[1].ParentID)
	assert.Equal(t, 1, items[1].Depth)
}

func TestFlattenShowsOneRowPerRecurrence(t *testing.T) {
	created := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	older := &goals.Task{ID: "a1", RecurrenceID: "r", Title: "Stretch", State: goals.StateCompletedOnTime, CreatedAt: created}
	live := &goals.Task{ID: "a2", RecurrenceID: "r", Title: "Stretch", State: goals.StateInProgress, CreatedAt: created.Add(time.Hour)}
	child := &goals.Task{ID: "c", Title: "Warm up", State: goals.StateInProgress, CreatedAt: created}
	live.Subtasks = []*goals.Task{child}
	g := &goals.Goal{ID: "g", Title: "Flexibility", Tasks: []*goals.Task{older, live}}
	g.Link()

	items := FlattenGoals([]*goals.Goal{g}, map[string]bool{"g": true, "a2": true})

	require.Len(t, items, 3)
	assert.Equal(t, "a2", items[1].ID)
	assert.True(t, items[1].HasChildren)
	assert.Equal(t, "c", items[2].ID)
	assert.Equal(t, 2, items[2].Depth)
	assert.Equal(t, child, items[2].Node())
	assert.Equal(t, g, items[2].Goal)
}

func TestFlattenTasksCollapsed(t *testing.T) {
	parent := &goals.Task{ID: "p", Title: "Parent", Subtasks: []*goals.Task{{ID: "c", Title: "Child"}}}

	items := FlattenTasks([]*goals.Task{parent}, map[string]bool{})

	require.Len(t, items, 1)
	assert.True(t, items[0].HasChildren)
	assert.False(t, items[0].IsExpanded)
}

func TestFilterVisibleItems(t *testing.T) {
	items := []TreeItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := FilterVisibleItems(items, map[string]bool{"c": true}, map[string]bool{"a": true})
	assert.Equal(t, []TreeItem{{ID: "a"}, {ID: "c"}}, got)
}

func TestWatcherReportsGoalFileChanges(t *testing.T) {
	dir := t.TempDir()
	msgs := make(chan tea.Msg, 4)
	stop, err := StartWatcher(dir, func(msg tea.Msg) { msgs <- msg }, discard)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g1.md"), []byte("---\nid: g1\n---\n"), 0644))

	select {
	case msg := <-msgs:
		assert.IsType(t, FileChangedMsg{}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no FileChangedMsg after writing a goal file")
	}
}
