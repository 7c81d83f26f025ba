package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/goals"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func ts(day int) *time.Time {
	t := time.Date(2026, time.March, day, 23, 59, 59, 0, time.UTC)
	return &t
}

// sampleGoal builds a two-level tree without the engine.
func sampleGoal(id, title string) *goals.Goal {
	child := &goals.Task{
		ID:              id + "-child",
		Title:           "child",
		State:           goals.StateCompletedLate,
		Difficulty:      goals.DifficultyEasy,
		Cadence:         cadence.Never,
		Tier:            2,
		HardDeadline:    ts(5),
		CurrentDeadline: ts(5),
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		CompletedAt:     ts(6),
	}
	root := &goals.Task{
		ID:              id + "-root",
		RecurrenceID:    id + "-rec",
		Title:           "root",
		State:           goals.StateInProgress,
		Difficulty:      goals.DifficultyDifficult,
		Cadence:         cadence.Weekly,
		Tier:            1,
		HardDeadline:    ts(20),
		CurrentDeadline: ts(8),
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Habit:           &goals.HabitBinding{Label: "after coffee"},
		Subtasks:        []*goals.Task{child},
	}
	g := &goals.Goal{
		ID:              id,
		Title:           title,
		Categories:      []goals.Category{goals.CategoryCareer, goals.CategoryLearning},
		Motivation:      "Because.",
		StartDate:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		State:           goals.StateInProgress,
		HardDeadline:    ts(25),
		CurrentDeadline: ts(25),
		Cadence:         cadence.Never,
		Tasks:           []*goals.Task{root},
	}
	g.Link()
	return g
}

func assertSameTree(t *testing.T, want, got *goals.Goal) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Categories, got.Categories)
	assert.Equal(t, want.Motivation, got.Motivation)
	assert.True(t, want.StartDate.Equal(got.StartDate))
	assert.Equal(t, want.State, got.State)
	assertSameTime(t, want.HardDeadline, got.HardDeadline)
	assertSameTime(t, want.CurrentDeadline, got.CurrentDeadline)
	assert.Equal(t, want.Cadence, got.Cadence)
	assertSameTime(t, want.CompletedAt, got.CompletedAt)

	var wantTasks, gotTasks []*goals.Task
	want.Walk(func(t *goals.Task) bool { wantTasks = append(wantTasks, t); return true })
	got.Walk(func(t *goals.Task) bool { gotTasks = append(gotTasks, t); return true })
	require.Len(t, gotTasks, len(wantTasks))
	for i, w := range wantTasks {
		g := gotTasks[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.RecurrenceID, g.RecurrenceID)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.State, g.State)
		assert.Equal(t, w.Difficulty, g.Difficulty)
		assert.Equal(t, w.Cadence, g.Cadence)
		assert.Equal(t, w.Tier, g.Tier)
		assertSameTime(t, w.HardDeadline, g.HardDeadline)
		assertSameTime(t, w.CurrentDeadline, g.CurrentDeadline)
		assertSameTime(t, w.CompletedAt, g.CompletedAt)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		assert.Equal(t, w.Habit != nil, g.Habit != nil)
		assert.Same(t, got, g.Goal)
		if w.Parent != nil {
			require.NotNil(t, g.Parent)
			assert.Equal(t, w.Parent.ID, g.Parent.ID)
		}
	}
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "want %s, got %s", want, got)
}

type opener func(t *testing.T, dir string) Store

var backends = map[string]opener{
	"file": func(t *testing.T, dir string) Store {
		s, err := NewFileStore(dir, quiet)
		require.NoError(t, err)
		return s
	},
	"sqlite": func(t *testing.T, dir string) Store {
		s, err := NewSQLiteStore(filepath.Join(dir, "anchor.db"), quiet)
		require.NoError(t, err)
		return s
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, open func() Store)) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			var opened []Store
			t.Cleanup(func() {
				for _, s := range opened {
					s.Close()
				}
			})
			fn(t, func() Store {
				s := newStore(t, dir)
				opened = append(opened, s)
				return s
			})
		})
	}
}

func TestInsertSaveReload(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		g := sampleGoal("g1", "Ship it")
		require.NoError(t, s.Insert(g))
		require.NoError(t, s.Save())

		fresh := open()
		all, err := fresh.FetchAll(SortByStart)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assertSameTree(t, g, all[0])
	})
}

func TestSaveCommitsInPlaceMutations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		g := sampleGoal("g1", "Ship it")
		require.NoError(t, s.Insert(g))
		require.NoError(t, s.Save())

		g.Tasks[0].State = goals.StateCompletedOnTime
		g.Tasks[0].CompletedAt = ts(7)
		g.Tasks[0].Subtasks = nil
		require.NoError(t, s.Save())

		require.NoError(t, s.Reload())
		n, err := s.Find("g1-root")
		require.NoError(t, err)
		task := n.(*goals.Task)
		assert.Equal(t, goals.StateCompletedOnTime, task.State)
		assert.Empty(t, task.Subtasks)

		_, err = s.Find("g1-child")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestInsertRejectsDuplicates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		require.NoError(t, s.Insert(sampleGoal("g1", "one")))

		err := s.Insert(sampleGoal("g1", "again"))
		assert.ErrorIs(t, err, ErrStore)
		assert.Error(t, s.Insert(&goals.Goal{}))
	})
}

func TestFind(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		g := sampleGoal("g1", "Ship it")
		require.NoError(t, s.Insert(g))

		n, err := s.Find("g1")
		require.NoError(t, err)
		assert.Same(t, g, n)

		n, err = s.Find("g1-child")
		require.NoError(t, err)
		assert.Equal(t, "child", n.NodeTitle())

		_, err = s.Find("missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, errors.Is(err, ErrStore))
	})
}

func TestDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		keep, drop := sampleGoal("keep", "Keep"), sampleGoal("drop", "Drop")
		require.NoError(t, s.Insert(keep))
		require.NoError(t, s.Insert(drop))
		require.NoError(t, s.Save())

		require.NoError(t, s.Delete(drop))
		assert.ErrorIs(t, s.Delete(drop), ErrNotFound)
		_, err := s.Find("drop-child")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, s.Save())

		fresh := open()
		all, err := fresh.FetchAll(SortByTitle)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "keep", all[0].ID)
		_, err = fresh.Find("drop-root")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFetchAllSorting(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		a := sampleGoal("a", "zebra")
		a.StartDate = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
		a.HardDeadline = nil
		b := sampleGoal("b", "Apple")
		b.StartDate = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		b.HardDeadline = ts(28)
		c := sampleGoal("c", "mango")
		c.StartDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		c.HardDeadline = ts(26)
		for _, g := range []*goals.Goal{a, b, c} {
			require.NoError(t, s.Insert(g))
		}

		ids := func(key SortKey) []string {
			all, err := s.FetchAll(key)
			require.NoError(t, err)
			var out []string
			for _, g := range all {
				out = append(out, g.ID)
			}
			return out
		}
		assert.Equal(t, []string{"c", "b", "a"}, ids(SortByStart))
		assert.Equal(t, []string{"c", "b", "a"}, ids(SortByDeadline))
		assert.Equal(t, []string{"b", "c", "a"}, ids(SortByTitle))
	})
}

func TestReloadDiscardsUnsavedChanges(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		s := open()
		require.NoError(t, s.Insert(sampleGoal("g1", "saved")))
		require.NoError(t, s.Save())
		require.NoError(t, s.Insert(sampleGoal("g2", "unsaved")))

		require.NoError(t, s.Reload())
		all, err := s.FetchAll(SortByStart)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "g1", all[0].ID)
	})
}

func TestFileStoreSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, quiet)
	require.NoError(t, err)
	require.NoError(t, s.Insert(sampleGoal("good", "Good")))
	require.NoError(t, s.Save())

	require.NoError(t, os.WriteFile(filepath.Join(s.GoalsDir(), "broken.md"), []byte("---\nid: [\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.GoalsDir(), "notes.txt"), []byte("ignored"), 0644))

	require.NoError(t, s.Reload())
	all, err := s.FetchAll(SortByStart)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestFileStoreSaveReplacesFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, quiet)
	require.NoError(t, err)
	g := sampleGoal("g1", "Ship it")
	require.NoError(t, s.Insert(g))
	require.NoError(t, s.Save())

	g.Title = "Ship it twice"
	require.NoError(t, s.Save())

	entries, err := os.ReadDir(s.GoalsDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"g1.md"}, names, "no temp files are left behind")

	info, err := os.Stat(s.GoalPath("g1"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	reopened, err := NewFileStore(dir, quiet)
	require.NoError(t, err)
	n, err := reopened.Find("g1")
	require.NoError(t, err)
	assert.Equal(t, "Ship it twice", n.(*goals.Goal).Title)
}

func TestFileStoreSaveFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, quiet)
	require.NoError(t, err)
	g := sampleGoal("g1", "Ship it")
	require.NoError(t, s.Insert(g))

	// Replace the goals directory with a file so writes fail.
	require.NoError(t, os.RemoveAll(s.GoalsDir()))
	require.NoError(t, os.WriteFile(s.GoalsDir(), nil, 0644))

	err = s.Save()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "save", serr.Op)
	assert.Equal(t, "g1", serr.ID)

	n, err := s.Find("g1")
	require.NoError(t, err)
	assert.Same(t, g, n)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Backend: BackendFile, Dir: dir, Logger: quiet})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "x.db"), Logger: quiet})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Options{Backend: "postgres"})
	assert.Error(t, err)
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByStart, k)

	k, err = ParseSortKey("Deadline")
	require.NoError(t, err)
	assert.Equal(t, SortByDeadline, k)

	_, err = ParseSortKey("priority")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "save", ID: "g1", Err: errors.New("disk full")}
	assert.Equal(t, "store save g1: disk full", err.Error())
	assert.Equal(t, "store load: boom", (&Error{Op: "load", Err: errors.New("boom")}).Error())
}
