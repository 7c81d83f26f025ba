package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stefanpenner/anchor/pkg/goals"
)

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func goalToMap(e *goals.Engine, g *goals.Goal) map[string]interface{} {
	m := map[string]interface{}{
		"id":               g.ID,
		"title":            g.Title,
		"state":            string(g.State),
		"cadence":          g.Cadence.String(),
		"categories":       g.Categories,
		"motivation":       g.Motivation,
		"start_date":       g.StartDate.Format(time.RFC3339),
		"hard_deadline":    formatTime(g.HardDeadline),
		"current_deadline": formatTime(g.CurrentDeadline),
		"completed_at":     formatTime(g.CompletedAt),
		"progress":         e.Progress(g),
	}
	if tasks := goals.ActiveRootTasks(g); len(tasks) > 0 {
		m["tasks"] = tasksToMap(tasks)
	}
	return m
}

func goalsToMap(e *goals.Engine, gs []*goals.Goal) []map[string]interface{} {
	result := []map[string]interface{}{}
	for _, g := range gs {
		result = append(result, goalToMap(e, g))
	}
	return result
}

func taskToMap(t *goals.Task) map[string]interface{} {
	m := map[string]interface{}{
		"id":               t.ID,
		"title":            t.Title,
		"state":            string(t.State),
		"cadence":          t.Cadence.String(),
		"difficulty":       string(t.Difficulty),
		"tier":             t.Tier,
		"hard_deadline":    formatTime(t.HardDeadline),
		"current_deadline": formatTime(t.CurrentDeadline),
		"completed_at":     formatTime(t.CompletedAt),
	}
	if t.Goal != nil {
		m["goal_id"] = t.Goal.ID
	}
	if t.Habit != nil {
		m["habit"] = t.Habit.Label
	}
	if subs := goals.ActiveSubtasks(t); len(subs) > 0 {
		m["subtasks"] = tasksToMap(subs)
	}
	return m
}

func tasksToMap(tasks []*goals.Task) []map[string]interface{} {
	var result []map[string]interface{}
	for _, t := range tasks {
		result = append(result, taskToMap(t))
	}
	return result
}

func nodeToMap(e *goals.Engine, n goals.Node) map[string]interface{} {
	switch n := n.(type) {
	case *goals.Goal:
		return goalToMap(e, n)
	case *goals.Task:
		return taskToMap(n)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func stateMark(n goals.Node) string {
	if n.IsCompleted() {
		return "[x]"
	}
	return "[ ]"
}

// printTasks writes an indented outline of the active tasks beneath a node.
func printTasks(w io.Writer, tasks []*goals.Task, depth int) {
	for _, t := range tasks {
		line := fmt.Sprintf("%s%s %s  %s  due %s", strings.Repeat("  ", depth), stateMark(t), shortID(t.ID), t.Title, formatDay(t.Limit()))
		if t.IsRecurring() {
			line += "  (" + strings.ToLower(t.Cadence.String()) + ")"
		}
		fmt.Fprintln(w, line)
		printTasks(w, goals.ActiveSubtasks(t), depth+1)
	}
}
