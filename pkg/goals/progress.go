package goals

import (
	"math"
	"sort"
	"time"
)

// Counts tallies nodes of an active subtree.
type Counts struct {
	Total     int
	Completed int
}

// SubtreeCounts counts t and its active descendants, and how many of them
// are truly completed.
func (e *Engine) SubtreeCounts(t *Task) Counts {
	c := Counts{Total: 1}
	if e.IsTrulyCompleted(t) {
		c.Completed = 1
	}
	for _, s := range ActiveSubtasks(t) {
		sc := e.SubtreeCounts(s)
		c.Total += sc.Total
		c.Completed += sc.Completed
	}
	return c
}

// GoalCounts sums SubtreeCounts over g's active root tasks. g itself is not
// included.
func (e *Engine) GoalCounts(g *Goal) Counts {
	var c Counts
	for _, t := range ActiveRootTasks(g) {
		sc := e.SubtreeCounts(t)
		c.Total += sc.Total
		c.Completed += sc.Completed
	}
	return c
}

// Progress is the completed fraction of g's tree, counting g as one unit.
func (e *Engine) Progress(g *Goal) float64 {
	done := 0
	if g.IsCompleted() {
		done = 1
	}
	c := e.GoalCounts(g)
	if c.Total == 0 {
		return float64(done)
	}
	return float64(c.Completed+done) / float64(c.Total+1)
}

// TaskProgress is the completed fraction of t's subtree, t included.
func (e *Engine) TaskProgress(t *Task) float64 {
	c := e.SubtreeCounts(t)
	return float64(c.Completed) / float64(c.Total)
}

// TierCounts counts g's active tasks per tier.
func (e *Engine) TierCounts(g *Goal) map[int]int {
	counts := make(map[int]int)
	var visit func([]*Task)
	visit = func(ts []*Task) {
		for _, t := range ts {
			counts[t.Tier]++
			visit(ActiveSubtasks(t))
		}
	}
	visit(ActiveRootTasks(g))
	return counts
}

// IsOverdue reports whether an incomplete node's active deadline lies on a
// day before now.
func (e *Engine) IsOverdue(n Node, now time.Time) bool {
	if n.IsCompleted() {
		return false
	}
	limit := n.Limit()
	return limit != nil && e.cal.CompareDay(now, *limit) > 0
}

// FocusTask picks the incomplete task, across all goals, whose hard deadline
// is the fewest days away, preferring harder tasks on a tie.
func (e *Engine) FocusTask(all []*Goal, now time.Time) *Task {
	var candidates []*Task
	for _, g := range all {
		g.Walk(func(t *Task) bool {
			if !t.IsCompleted() {
				candidates = append(candidates, t)
			}
			return true
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	daysUntil := func(t *Task) int {
		if t.HardDeadline == nil {
			return math.MaxInt
		}
		return e.cal.DaysBetween(now, *t.HardDeadline)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := daysUntil(candidates[i]), daysUntil(candidates[j])
		if di != dj {
			return di < dj
		}
		return candidates[i].Difficulty.Rank() > candidates[j].Difficulty.Rank()
	})
	return candidates[0]
}

// UpcomingGoal returns the incomplete goal with the earliest hard deadline
// still ahead of now.
func (e *Engine) UpcomingGoal(all []*Goal, now time.Time) *Goal {
	var best *Goal
	for _, g := range all {
		if g.IsCompleted() || g.HardDeadline == nil || !g.HardDeadline.After(now) {
			continue
		}
		if best == nil || g.HardDeadline.Before(*best.HardDeadline) {
			best = g
		}
	}
	return best
}
