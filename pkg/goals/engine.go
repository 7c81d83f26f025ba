package goals

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stefanpenner/anchor/pkg/cadence"
)

// Engine applies completion, cycle and deadline rules to in-memory goal
// trees. It never persists anything; callers commit through a store after a
// mutation returns. An Engine is not safe for concurrent use on the same tree.
type Engine struct {
	clock  Clock
	cal    cadence.Calendar
	logger *slog.Logger
	newID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of "now".
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCalendar sets the time zone used for day-granularity comparisons.
func WithCalendar(cal cadence.Calendar) Option {
	return func(e *Engine) { e.cal = cal }
}

// WithLogger sets the logger for transition events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator overrides uuid-based identity generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an Engine with the system clock, the local calendar and the
// default logger unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock: SystemClock,
		cal:   cadence.NewCalendar(time.Local),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Calendar returns the engine's calendar.
func (e *Engine) Calendar() cadence.Calendar {
	return e.cal
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// effectiveLimit is the earliest, at day granularity, of t's own hard
// deadline, its parent's active deadline and the owning goal's hard deadline.
// For a root task the goal plays the parent's role.
func (e *Engine) effectiveLimit(t *Task) *time.Time {
	candidates := []*time.Time{t.HardDeadline}
	switch {
	case t.Parent != nil:
		candidates = append(candidates, t.Parent.Limit())
	case t.Goal != nil:
		candidates = append(candidates, t.Goal.Limit())
	}
	if t.Goal != nil {
		candidates = append(candidates, t.Goal.HardDeadline)
	}
	return e.earliest(candidates...)
}

// hierarchyCeiling is the earliest hard deadline among t's ancestors and goal.
func (e *Engine) hierarchyCeiling(t *Task) *time.Time {
	var candidates []*time.Time
	for _, a := range t.Ancestors() {
		candidates = append(candidates, a.HardDeadline)
	}
	if t.Goal != nil {
		candidates = append(candidates, t.Goal.HardDeadline)
	}
	return e.earliest(candidates...)
}

func (e *Engine) earliest(ts ...*time.Time) *time.Time {
	var best *time.Time
	for _, t := range ts {
		if t == nil {
			continue
		}
		if best == nil || e.cal.CompareDay(*t, *best) < 0 {
			best = t
		}
	}
	return copyTime(best)
}

// clamp returns d, or limit when limit falls on an earlier day.
func (e *Engine) clamp(d time.Time, limit *time.Time) time.Time {
	if limit != nil && e.cal.CompareDay(d, *limit) > 0 {
		return *limit
	}
	return d
}

// dayAfter reports whether a falls on a later calendar day than b. A nil b
// is unbounded.
func (e *Engine) dayAfter(a time.Time, b *time.Time) bool {
	return b != nil && e.cal.CompareDay(a, *b) > 0
}

// complete moves t to a terminal state, judging lateness against its hard
// deadline at day granularity.
func (e *Engine) complete(t *Task) {
	now := e.clock.Now()
	t.CompletedAt = timePtr(now)
	if e.dayAfter(now, t.HardDeadline) {
		t.State = StateCompletedLate
	} else {
		t.State = StateCompletedOnTime
	}
	e.logger.Debug("task completed", "task", t.ID, "title", t.Title, "state", t.State)
}

// markInProgress resets t's cycle state without notifying anyone.
func (e *Engine) markInProgress(t *Task) {
	t.State = StateInProgress
	t.CompletedAt = nil
	if !t.IsRecurring() {
		t.CurrentDeadline = copyTime(t.HardDeadline)
	}
}

func (e *Engine) completeGoal(g *Goal) {
	now := e.clock.Now()
	g.CompletedAt = timePtr(now)
	if e.dayAfter(now, g.HardDeadline) {
		g.State = StateCompletedLate
	} else {
		g.State = StateCompletedOnTime
	}
	e.logger.Debug("goal completed", "goal", g.ID, "title", g.Title, "state", g.State)
}

func (e *Engine) markGoalInProgress(g *Goal) {
	g.State = StateInProgress
	g.CompletedAt = nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return timePtr(*t)
}
