// Package store persists goal trees. Stores hold a working set of goals in
// memory; the engine mutates those goals in place and Save commits them.
package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/stefanpenner/anchor/pkg/goals"
)

// Store is the persistence collaborator of the engine.
type Store interface {
	// Insert adds a new goal to the working set. It is written on Save.
	Insert(g *goals.Goal) error
	// Save commits every goal in the working set and applies deletions.
	// A failed Save is never retried and leaves memory untouched.
	Save() error
	// Delete drops a goal and its whole task tree. It is applied on Save.
	Delete(g *goals.Goal) error
	// Find returns the goal or task with the given id.
	Find(id string) (goals.Node, error)
	// FetchAll returns every goal in the working set, ordered by sortBy.
	FetchAll(sortBy SortKey) ([]*goals.Goal, error)
	// Reload discards unsaved changes and re-reads the backing storage.
	Reload() error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Options configures Open.
type Options struct {
	Backend    Backend
	Dir        string // data directory for the file backend
	SQLitePath string
	Logger     *slog.Logger
}

// Open returns the Store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Dir, opts.Logger)
	case BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// SortKey orders FetchAll results.
type SortKey string

const (
	SortByStart    SortKey = "start"
	SortByDeadline SortKey = "deadline"
	SortByTitle    SortKey = "title"
)

// ParseSortKey accepts a sort key name; the empty string means SortByStart.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "":
		return SortByStart, nil
	case SortByStart, SortByDeadline, SortByTitle:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (use start, deadline or title)", s)
	}
}

// workingSet is the in-memory state both stores share: the live goals and
// the ids deleted since the last Save.
type workingSet struct {
	goals   map[string]*goals.Goal
	deleted map[string]bool
}

func newWorkingSet() *workingSet {
	return &workingSet{
		goals:   make(map[string]*goals.Goal),
		deleted: make(map[string]bool),
	}
}

func (w *workingSet) insert(g *goals.Goal) error {
	if g == nil || g.ID == "" {
		return &Error{Op: "insert", Err: fmt.Errorf("goal has no id")}
	}
	if _, ok := w.goals[g.ID]; ok {
		return &Error{Op: "insert", ID: g.ID, Err: fmt.Errorf("goal already exists")}
	}
	g.Link()
	w.goals[g.ID] = g
	delete(w.deleted, g.ID)
	return nil
}

func (w *workingSet) remove(g *goals.Goal) error {
	if _, ok := w.goals[g.ID]; !ok {
		return fmt.Errorf("%w: goal %s", ErrNotFound, g.ID)
	}
	delete(w.goals, g.ID)
	w.deleted[g.ID] = true
	return nil
}

func (w *workingSet) find(id string) (goals.Node, error) {
	if g, ok := w.goals[id]; ok {
		return g, nil
	}
	for _, g := range w.goals {
		if t := g.FindTask(id); t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (w *workingSet) reset(loaded []*goals.Goal) {
	clear(w.goals)
	clear(w.deleted)
	for _, g := range loaded {
		g.Link()
		w.goals[g.ID] = g
	}
}

func (w *workingSet) sorted(key SortKey) []*goals.Goal {
	out := make([]*goals.Goal, 0, len(w.goals))
	for _, g := range w.goals {
		out = append(out, g)
	}
	sortGoals(out, key)
	return out
}

func sortGoals(gs []*goals.Goal, key SortKey) {
	sort.SliceStable(gs, func(i, j int) bool {
		a, b := gs[i], gs[j]
		switch key {
		case SortByDeadline:
			switch {
			case a.HardDeadline == nil && b.HardDeadline != nil:
				return false
			case a.HardDeadline != nil && b.HardDeadline == nil:
				return true
			case a.HardDeadline != nil && !a.HardDeadline.Equal(*b.HardDeadline):
				return a.HardDeadline.Before(*b.HardDeadline)
			}
		case SortByTitle:
			if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
				return ta < tb
			}
		default:
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
		}
		return a.ID < b.ID
	})
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
