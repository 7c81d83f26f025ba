package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stefanpenner/anchor/pkg/goals"
)

const goalFileExt = ".md"

// FileStore keeps one markdown file per goal under <root>/goals.
type FileStore struct {
	Root string

	logger *slog.Logger
	set    *workingSet
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at the given directory, creating
// the directory structure if needed, and loads every goal file in it.
func NewFileStore(root string, logger *slog.Logger) (*FileStore, error) {
	goalsDir := filepath.Join(root, "goals")
	if err := os.MkdirAll(goalsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating goals directory: %w", err)
	}
	s := &FileStore{Root: root, logger: loggerOrDefault(logger), set: newWorkingSet()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// GoalsDir returns the path to the goals directory.
func (s *FileStore) GoalsDir() string {
	return filepath.Join(s.Root, "goals")
}

// GoalPath returns the file a goal is stored in.
func (s *FileStore) GoalPath(id string) string {
	return filepath.Join(s.GoalsDir(), id+goalFileExt)
}

// Reload re-reads every goal file. Files that fail to parse are skipped.
func (s *FileStore) Reload() error {
	entries, err := os.ReadDir(s.GoalsDir())
	if err != nil && !os.IsNotExist(err) {
		return &Error{Op: "load", Err: fmt.Errorf("reading goals directory: %w", err)}
	}

	var loaded []*goals.Goal
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), goalFileExt) {
			continue
		}
		g, err := s.loadGoal(filepath.Join(s.GoalsDir(), entry.Name()))
		if err != nil {
			s.logger.Warn("skipping goal file", "file", entry.Name(), "error", err)
			continue // skip broken goals
		}
		loaded = append(loaded, g)
	}
	s.set.reset(loaded)
	s.logger.Debug("goals loaded", "dir", s.GoalsDir(), "count", len(loaded))
	return nil
}

func (s *FileStore) loadGoal(path string) (*goals.Goal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	g, err := ParseFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return g, nil
}

func (s *FileStore) Insert(g *goals.Goal) error {
	return s.set.insert(g)
}

func (s *FileStore) Delete(g *goals.Goal) error {
	return s.set.remove(g)
}

func (s *FileStore) Find(id string) (goals.Node, error) {
	return s.set.find(id)
}

func (s *FileStore) FetchAll(sortBy SortKey) ([]*goals.Goal, error) {
	return s.set.sorted(sortBy), nil
}

// Save writes every goal in the working set and removes the files of
// deleted goals. All failures are reported together.
func (s *FileStore) Save() error {
	var errs []error
	for id := range s.set.deleted {
		if err := os.Remove(s.GoalPath(id)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, &Error{Op: "delete", ID: id, Err: err})
			continue
		}
		delete(s.set.deleted, id)
	}
	for _, g := range s.set.goals {
		if err := s.saveGoal(g); err != nil {
			errs = append(errs, &Error{Op: "save", ID: g.ID, Err: err})
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("saving goals", "error", err)
		return err
	}
	s.logger.Debug("goals saved", "dir", s.GoalsDir(), "count", len(s.set.goals))
	return nil
}

func (s *FileStore) saveGoal(g *goals.Goal) error {
	content, err := SerializeFrontmatter(g)
	if err != nil {
		return fmt.Errorf("serializing goal: %w", err)
	}
	return writeFileAtomic(s.GoalPath(g.ID), []byte(content), 0644)
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) Close() error { return nil }
