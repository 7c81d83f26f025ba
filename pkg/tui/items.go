package tui

import (
	"time"

	"github.com/stefanpenner/anchor/pkg/goals"
)

// TreeItem represents one visible row: a goal, a task or a section header.
type TreeItem struct {
	ID              string // node id, or a header key
	ParentID        string // parent's row ID for search ancestor tracking
	Name            string
	Goal            *goals.Goal // owning goal
	Task            *goals.Task // nil for goal rows
	Depth           int
	HasChildren     bool
	IsExpanded      bool
	IsSectionHeader bool // true for "OVERDUE", "IN PROGRESS", "COMPLETED" headers
}

// Node returns the goal or task the row shows, or nil for a header.
func (i TreeItem) Node() goals.Node {
	switch {
	case i.IsSectionHeader:
		return nil
	case i.Task != nil:
		return i.Task
	case i.Goal != nil:
		return i.Goal
	default:
		return nil
	}
}

// Section names used by FlattenWithStatusGroups.
const (
	SectionOverdue    = "OVERDUE"
	SectionInProgress = "IN PROGRESS"
	SectionCompleted  = "COMPLETED"
)

// FlattenGoals returns the visible rows for a list of goals in the given
// order. Expanded rows are followed by their active children.
func FlattenGoals(gs []*goals.Goal, expandedState map[string]bool) []TreeItem {
	var result []TreeItem
	flattenGoals(gs, 0, "", expandedState, &result)
	return result
}

// FlattenWithStatusGroups groups goals under OVERDUE / IN PROGRESS /
// COMPLETED section headers.
func FlattenWithStatusGroups(e *goals.Engine, gs []*goals.Goal, now time.Time, expandedState map[string]bool) []TreeItem {
	var overdue, active, done []*goals.Goal
	for _, g := range gs {
		switch {
		case g.IsCompleted():
			done = append(done, g)
		case e.IsOverdue(g, now):
			overdue = append(overdue, g)
		default:
			active = append(active, g)
		}
	}

	var result []TreeItem
	for _, section := range []struct {
		name  string
		goals []*goals.Goal
	}{
		{SectionOverdue, overdue},
		{SectionInProgress, active},
		{SectionCompleted, done},
	} {
		if len(section.goals) == 0 {
			continue
		}
		headerID := "__header_" + section.name
		result = append(result, TreeItem{
			ID:              headerID,
			Name:            section.name,
			IsSectionHeader: true,
		})
		flattenGoals(section.goals, 1, headerID, expandedState, &result)
	}
	return result
}

// FlattenTasks returns the visible rows for a task list, such as the tasks
// of a projected goal.
func FlattenTasks(tasks []*goals.Task, expandedState map[string]bool) []TreeItem {
	var result []TreeItem
	flattenTasks(tasks, 0, "", expandedState, &result)
	return result
}

func flattenGoals(gs []*goals.Goal, depth int, parentID string, expandedState map[string]bool, result *[]TreeItem) {
	for _, g := range gs {
		roots := goals.ActiveRootTasks(g)
		item := TreeItem{
			ID:          g.ID,
			ParentID:    parentID,
			Name:        g.Title,
			Goal:        g,
			Depth:       depth,
			HasChildren: len(roots) > 0,
			IsExpanded:  expandedState[g.ID],
		}
		*result = append(*result, item)

		if item.HasChildren && item.IsExpanded {
			flattenTasks(roots, depth+1, g.ID, expandedState, result)
		}
	}
}

func flattenTasks(tasks []*goals.Task, depth int, parentID string, expandedState map[string]bool, result *[]TreeItem) {
	for _, t := range tasks {
		children := goals.ActiveSubtasks(t)
		item := TreeItem{
			ID:          t.ID,
			ParentID:    parentID,
			Name:        t.Title,
			Goal:        t.Goal,
			Task:        t,
			Depth:       depth,
			HasChildren: len(children) > 0,
			IsExpanded:  expandedState[t.ID],
		}
		*result = append(*result, item)

		if item.HasChildren && item.IsExpanded {
			flattenTasks(children, depth+1, t.ID, expandedState, result)
		}
	}
}

// FilterVisibleItems filters already-flattened visible items to only include
// items whose ID is in matchIDs or ancestorIDs.
func FilterVisibleItems(items []TreeItem, matchIDs, ancestorIDs map[string]bool) []TreeItem {
	var result []TreeItem
	for _, item := range items {
		if matchIDs[item.ID] || ancestorIDs[item.ID] {
			result = append(result, item)
		}
	}
	return result
}
