package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/anchor/pkg/config"
	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
)

// newDataDir returns a data directory whose calendar is pinned to UTC.
func newDataDir(t *testing.T, backend store.Backend) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Calendar.Timezone = "UTC"
	cfg.Store.Backend = backend
	cfg.Log.Level = "warn"
	require.NoError(t, cfg.SaveToFile(config.Path(dir)))
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := execute(append([]string{"--dir", dir}, args...), &out, &errOut)
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "anchor %v", args)
	return out
}

func runJSON(t *testing.T, dir string, v interface{}, args ...string) {
	t.Helper()
	out := mustRun(t, dir, append([]string{"--json"}, args...)...)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

type taskJSON struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	State           string     `json:"state"`
	Cadence         string     `json:"cadence"`
	Tier            int        `json:"tier"`
	HardDeadline    *string    `json:"hard_deadline"`
	CurrentDeadline *string    `json:"current_deadline"`
	Subtasks        []taskJSON `json:"subtasks"`
}

type goalJSON struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	HardDeadline *string    `json:"hard_deadline"`
	Progress     float64    `json:"progress"`
	Tasks        []taskJSON `json:"tasks"`
}

func TestGoalLifecycle(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	out := mustRun(t, dir, "goal", "add", "Learn Go", "--deadline", "2099-06-30", "--task", "Read the tour", "--category", "Learning")
	assert.Contains(t, out, "Created goal")

	var list []goalJSON
	runJSON(t, dir, &list, "goal", "list")
	require.Len(t, list, 1)
	g := list[0]
	assert.Equal(t, "Learn Go", g.Title)
	assert.Equal(t, string(goals.StateInProgress), g.State)
	require.Len(t, g.Tasks, 1)
	require.NotNil(t, g.Tasks[0].HardDeadline)
	assert.Equal(t, "2099-06-30T23:59:59Z", *g.Tasks[0].HardDeadline)

	out = mustRun(t, dir, "goal", "show", g.ID[:8])
	assert.Contains(t, out, "Learn Go")
	assert.Contains(t, out, "[ ] "+shortID(g.Tasks[0].ID)+"  Read the tour")

	_, err := run(t, dir, "goal", "toggle", g.ID)
	assert.ErrorIs(t, err, goals.ErrBlocked)

	out = mustRun(t, dir, "task", "toggle", g.Tasks[0].ID)
	assert.Equal(t, "Completed: Read the tour\n", out)

	out = mustRun(t, dir, "goal", "toggle", g.ID)
	assert.Equal(t, "Completed: Learn Go\n", out)

	out = mustRun(t, dir, "goal", "toggle", g.ID)
	assert.Equal(t, "Reopened: Learn Go\n", out)
}

func TestGoalListEmpty(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	out := mustRun(t, dir, "goal", "list")
	assert.Contains(t, out, "No goals yet")

	var list []goalJSON
	runJSON(t, dir, &list, "goal", "list")
	assert.Empty(t, list)
}

func TestTaskDeadlinesStayInsideParent(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Ship release", "--deadline", "2099-06-30")

	var task taskJSON
	runJSON(t, dir, &task, "task", "add", g.ID, "Write notes", "--deadline", "2099-12-31")
	require.NotNil(t, task.HardDeadline)
	assert.Equal(t, "2099-06-30T23:59:59Z", *task.HardDeadline, "a proposed deadline past the goal is pulled back")

	_, err := run(t, dir, "task", "deadline", task.ID, "2099-12-31")
	assert.ErrorIs(t, err, goals.ErrValidation)

	out := mustRun(t, dir, "task", "deadline", task.ID, "2099-05-01")
	assert.Equal(t, "Write notes now due 2099-05-01\n", out)

	_, err = run(t, dir, "task", "deadline", task.ID, "next week")
	assert.ErrorContains(t, err, "use YYYY-MM-DD")
}

func TestSubtaskBlocksParent(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Move house", "--deadline", "2099-06-30", "--task", "Pack")
	pack := g.Tasks[0]

	var box taskJSON
	runJSON(t, dir, &box, "task", "add", pack.ID, "Buy boxes", "--deadline", "2099-06-01")
	assert.Equal(t, 2, box.Tier)

	_, err := run(t, dir, "task", "toggle", pack.ID)
	assert.ErrorIs(t, err, goals.ErrBlocked)

	out := mustRun(t, dir, "task", "complete-all", pack.ID)
	assert.Equal(t, "Pack: 2/2 complete\n", out)
}

func TestRecurringTaskAdvances(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Get fit", "--deadline", "2099-06-30")

	var task taskJSON
	runJSON(t, dir, &task, "task", "add", g.ID, "Run", "--cadence", "weekly", "--difficulty", "difficult")
	assert.Equal(t, "Weekly", task.Cadence)

	out := mustRun(t, dir, "task", "toggle", task.ID)
	assert.Contains(t, out, "Run next due ")

	var after taskJSON
	runJSON(t, dir, &after, "task", "cadence", task.ID, "daily")
	assert.Equal(t, "Daily", after.Cadence)
	assert.Equal(t, string(goals.StateInProgress), after.State)

	_, err := run(t, dir, "task", "cadence", task.ID, "fortnightly")
	assert.Error(t, err)
	_, err = run(t, dir, "task", "add", g.ID, "Swim", "--difficulty", "extreme")
	assert.ErrorContains(t, err, "unknown difficulty")
}

func TestResolveRejectsWrongKind(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Read more", "--task", "Pick a book")

	_, err := run(t, dir, "goal", "show", g.Tasks[0].ID)
	assert.ErrorContains(t, err, "is a task, not a goal")

	_, err = run(t, dir, "task", "toggle", g.ID)
	assert.ErrorContains(t, err, "is a goal, not a task")

	_, err = run(t, dir, "goal", "show", "zzzz")
	assert.ErrorContains(t, err, "no goal or task")
}

func TestDelete(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Garden", "--task", "Dig", "--task", "Plant")

	out := mustRun(t, dir, "task", "delete", g.Tasks[0].ID)
	assert.Contains(t, out, "Deleted task")

	var shown goalJSON
	runJSON(t, dir, &shown, "goal", "show", g.ID)
	require.Len(t, shown.Tasks, 1)
	assert.Equal(t, "Plant", shown.Tasks[0].Title)

	mustRun(t, dir, "goal", "delete", g.ID)
	var list []goalJSON
	runJSON(t, dir, &list, "goal", "list")
	assert.Empty(t, list)
}

func TestFocus(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	out := mustRun(t, dir, "focus")
	assert.Contains(t, out, "Nothing to do")

	mustRun(t, dir, "goal", "add", "Later", "--deadline", "2099-09-30", "--task", "Someday")
	mustRun(t, dir, "goal", "add", "Sooner", "--deadline", "2099-03-31", "--task", "First up")

	var result struct {
		Focus    *taskJSON  `json:"focus"`
		Upcoming *goalJSON  `json:"upcoming"`
		Overdue  []taskJSON `json:"overdue"`
	}
	runJSON(t, dir, &result, "focus")
	require.NotNil(t, result.Focus)
	assert.Equal(t, "First up", result.Focus.Title)
	require.NotNil(t, result.Upcoming)
	assert.Equal(t, "Sooner", result.Upcoming.Title)
	assert.Empty(t, result.Overdue)

	out = mustRun(t, dir, "focus")
	assert.Contains(t, out, "Focus: First up (Sooner), due 2099-03-31")
}

func TestCheck(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)
	mustRun(t, dir, "goal", "add", "Tidy", "--deadline", "2099-01-31", "--task", "Desk")

	out := mustRun(t, dir, "check")
	assert.Equal(t, "1 goals checked, no problems found\n", out)
}

func TestSQLiteBackend(t *testing.T) {
	dir := newDataDir(t, store.BackendSQLite)

	var g goalJSON
	runJSON(t, dir, &g, "goal", "add", "Save money", "--deadline", "2099-12-31", "--task", "Budget")
	mustRun(t, dir, "task", "toggle", g.Tasks[0].ID)

	var shown goalJSON
	runJSON(t, dir, &shown, "goal", "show", g.ID)
	require.Len(t, shown.Tasks, 1)
	assert.Equal(t, string(goals.StateCompletedOnTime), shown.Tasks[0].State)
	assert.InDelta(t, 0.5, shown.Progress, 0.001)
}

func TestInvalidFlags(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	_, err := run(t, dir, "--log-level", "loud", "goal", "list")
	assert.Error(t, err)

	_, err = run(t, dir, "goal", "list", "--sort", "colour")
	assert.ErrorContains(t, err, "unknown sort key")

	_, err = run(t, dir, "goal", "add")
	assert.Error(t, err)
}

func TestInitWritesConfig(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	out := mustRun(t, dir, "init")
	assert.Contains(t, out, "Initialized anchor in "+dir)

	_, err := os.Stat(config.Path(dir))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".git"))
	assert.NoError(t, err)
}

func TestSyncRequiresInit(t *testing.T) {
	dir := newDataDir(t, store.BackendFile)

	_, err := run(t, dir, "sync")
	assert.ErrorContains(t, err, "anchor init")
}
