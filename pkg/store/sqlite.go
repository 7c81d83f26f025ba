package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/goals"
)

// SQLiteStore keeps goals and tasks in two tables of a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	set    *workingSet
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath, runs
// migrations and loads every goal.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: loggerOrDefault(logger), set: newWorkingSet()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.Reload(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		categories TEXT NOT NULL DEFAULT '',
		motivation TEXT NOT NULL DEFAULT '',
		start_date DATETIME NOT NULL,
		state TEXT NOT NULL,
		hard_deadline DATETIME,
		current_deadline DATETIME,
		cadence TEXT NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		parent_id TEXT,
		position INTEGER NOT NULL,
		recurrence_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		state TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		cadence TEXT NOT NULL,
		tier INTEGER NOT NULL,
		hard_deadline DATETIME,
		current_deadline DATETIME,
		created_at DATETIME NOT NULL,
		completed_at DATETIME,
		habit_label TEXT,
		habit_time DATETIME,
		FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_goal_id ON tasks(goal_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(g *goals.Goal) error {
	return s.set.insert(g)
}

func (s *SQLiteStore) Delete(g *goals.Goal) error {
	return s.set.remove(g)
}

func (s *SQLiteStore) Find(id string) (goals.Node, error) {
	return s.set.find(id)
}

func (s *SQLiteStore) FetchAll(sortBy SortKey) ([]*goals.Goal, error) {
	return s.set.sorted(sortBy), nil
}

// Save rewrites every goal of the working set, and removes deleted ones, in
// a single transaction. On error nothing is persisted.
func (s *SQLiteStore) Save() error {
	if err := s.save(); err != nil {
		s.logger.Error("saving goals", "error", err)
		return err
	}
	clear(s.set.deleted)
	s.logger.Debug("goals saved", "count", len(s.set.goals))
	return nil
}

func (s *SQLiteStore) save() error {
	tx, err := s.db.Begin()
	if err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	for id := range s.set.deleted {
		if _, err := tx.Exec(`DELETE FROM tasks WHERE goal_id = ?`, id); err != nil {
			return &Error{Op: "delete", ID: id, Err: err}
		}
		if _, err := tx.Exec(`DELETE FROM goals WHERE id = ?`, id); err != nil {
			return &Error{Op: "delete", ID: id, Err: err}
		}
	}
	for _, g := range s.set.goals {
		if err := saveGoalTx(tx, g); err != nil {
			return &Error{Op: "save", ID: g.ID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Op: "save", Err: fmt.Errorf("commit transaction: %w", err)}
	}
	return nil
}

func saveGoalTx(tx *sql.Tx, g *goals.Goal) error {
	_, err := tx.Exec(
		`INSERT INTO goals (id, title, categories, motivation, start_date, state, hard_deadline, current_deadline, cadence, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, categories = excluded.categories, motivation = excluded.motivation,
			start_date = excluded.start_date, state = excluded.state, hard_deadline = excluded.hard_deadline,
			current_deadline = excluded.current_deadline, cadence = excluded.cadence, completed_at = excluded.completed_at`,
		g.ID, g.Title, joinCategories(g.Categories), g.Motivation, g.StartDate, string(g.State),
		nullTime(g.HardDeadline), nullTime(g.CurrentDeadline), g.Cadence.String(), nullTime(g.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}

	// Tasks are rewritten wholesale; positions record pre-order so a load
	// sees every parent before its children.
	if _, err := tx.Exec(`DELETE FROM tasks WHERE goal_id = ?`, g.ID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	pos := 0
	var insertErr error
	g.Walk(func(t *goals.Task) bool {
		var parentID sql.NullString
		if t.Parent != nil {
			parentID = sql.NullString{String: t.Parent.ID, Valid: true}
		}
		var habitLabel sql.NullString
		var habitTime sql.NullTime
		if t.Habit != nil {
			habitLabel = sql.NullString{String: t.Habit.Label, Valid: true}
			habitTime = nullTime(t.Habit.Time)
		}
		_, insertErr = tx.Exec(
			`INSERT INTO tasks (id, goal_id, parent_id, position, recurrence_id, title, state, difficulty, cadence, tier,
				hard_deadline, current_deadline, created_at, completed_at, habit_label, habit_time)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, g.ID, parentID, pos, t.RecurrenceID, t.Title, string(t.State), string(t.Difficulty),
			t.Cadence.String(), t.Tier, nullTime(t.HardDeadline), nullTime(t.CurrentDeadline), t.CreatedAt,
			nullTime(t.CompletedAt), habitLabel, habitTime,
		)
		if insertErr != nil {
			insertErr = fmt.Errorf("insert task %s: %w", t.ID, insertErr)
			return false
		}
		pos++
		return true
	})
	return insertErr
}

// Reload discards the working set and reads every goal from the database.
func (s *SQLiteStore) Reload() error {
	loaded, err := s.loadGoals()
	if err != nil {
		return &Error{Op: "load", Err: err}
	}
	s.set.reset(loaded)
	s.logger.Debug("goals loaded", "count", len(loaded))
	return nil
}

func (s *SQLiteStore) loadGoals() ([]*goals.Goal, error) {
	rows, err := s.db.Query(
		`SELECT id, title, categories, motivation, start_date, state, hard_deadline, current_deadline, cadence, completed_at
		 FROM goals`,
	)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*goals.Goal)
	var out []*goals.Goal
	for rows.Next() {
		var g goals.Goal
		var categories, state, cad string
		var hard, current, completed sql.NullTime
		if err := rows.Scan(&g.ID, &g.Title, &categories, &g.Motivation, &g.StartDate, &state,
			&hard, &current, &cad, &completed); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Categories = splitCategories(categories)
		g.State = goals.CompletionState(state)
		g.Cadence = cadence.Cadence(cad)
		g.HardDeadline = timeOrNil(hard)
		g.CurrentDeadline = timeOrNil(current)
		g.CompletedAt = timeOrNil(completed)
		byID[g.ID] = &g
		out = append(out, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadTasks(byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) loadTasks(byID map[string]*goals.Goal) error {
	rows, err := s.db.Query(
		`SELECT id, goal_id, parent_id, recurrence_id, title, state, difficulty, cadence, tier,
			hard_deadline, current_deadline, created_at, completed_at, habit_label, habit_time
		 FROM tasks ORDER BY goal_id, position`,
	)
	if err != nil {
		return fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make(map[string]*goals.Task)
	for rows.Next() {
		var t goals.Task
		var goalID, state, difficulty, cad string
		var parentID, habitLabel sql.NullString
		var hard, current, completed, habitTime sql.NullTime
		if err := rows.Scan(&t.ID, &goalID, &parentID, &t.RecurrenceID, &t.Title, &state, &difficulty, &cad,
			&t.Tier, &hard, &current, &t.CreatedAt, &completed, &habitLabel, &habitTime); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.State = goals.CompletionState(state)
		t.Difficulty = goals.Difficulty(difficulty)
		t.Cadence = cadence.Cadence(cad)
		t.HardDeadline = timeOrNil(hard)
		t.CurrentDeadline = timeOrNil(current)
		t.CompletedAt = timeOrNil(completed)
		if habitLabel.Valid {
			t.Habit = &goals.HabitBinding{Label: habitLabel.String, Time: timeOrNil(habitTime)}
		}

		g, ok := byID[goalID]
		if !ok {
			s.logger.Warn("skipping orphaned task", "task", t.ID, "goal", goalID)
			continue
		}
		switch parent, ok := tasks[parentID.String]; {
		case !parentID.Valid:
			g.Tasks = append(g.Tasks, &t)
		case ok:
			parent.Subtasks = append(parent.Subtasks, &t)
		default:
			s.logger.Warn("skipping task with missing parent", "task", t.ID, "parent", parentID.String)
			continue
		}
		tasks[t.ID] = &t
	}
	return rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timeOrNil(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func joinCategories(cs []goals.Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func splitCategories(s string) []goals.Category {
	if s == "" {
		return nil
	}
	var out []goals.Category
	for _, p := range strings.Split(s, ",") {
		out = append(out, goals.Category(p))
	}
	return out
}
