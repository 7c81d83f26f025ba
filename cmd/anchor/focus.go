package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
)

func (a *app) focusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus",
		Short: "Show what to work on next and what is overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			all, err := a.store.FetchAll(store.SortByDeadline)
			if err != nil {
				return err
			}
			now := a.engine.Now()
			focus := a.engine.FocusTask(all, now)
			upcoming := a.engine.UpcomingGoal(all, now)
			overdue := a.overdue(all)

			if a.jsonOut {
				result := map[string]interface{}{
					"focus":    nil,
					"upcoming": nil,
					"overdue":  []map[string]interface{}{},
				}
				if focus != nil {
					result["focus"] = taskToMap(focus)
				}
				if upcoming != nil {
					result["upcoming"] = goalToMap(a.engine, upcoming)
				}
				var list []map[string]interface{}
				for _, n := range overdue {
					list = append(list, map[string]interface{}{
						"id":       n.NodeID(),
						"title":    n.NodeTitle(),
						"deadline": formatTime(n.Limit()),
					})
				}
				if list != nil {
					result["overdue"] = list
				}
				return outputJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			if focus == nil {
				fmt.Fprintln(out, "Nothing to do. Every task is complete.")
			} else {
				goalTitle := ""
				if focus.Goal != nil {
					goalTitle = " (" + focus.Goal.Title + ")"
				}
				fmt.Fprintf(out, "Focus: %s%s, due %s\n", focus.Title, goalTitle, formatDay(focus.HardDeadline))
			}
			if upcoming != nil {
				fmt.Fprintf(out, "Next goal: %s, due %s\n", upcoming.Title, formatDay(upcoming.HardDeadline))
			}
			if len(overdue) > 0 {
				fmt.Fprintln(out, "Overdue:")
				for _, n := range overdue {
					fmt.Fprintf(out, "  %s  %s  due %s\n", shortID(n.NodeID()), n.NodeTitle(), formatDay(n.Limit()))
				}
			}
			return nil
		},
	}
}

// overdue lists every active goal and task whose deadline day has passed.
func (a *app) overdue(all []*goals.Goal) []goals.Node {
	now := a.engine.Now()
	var nodes []goals.Node
	var visit func(tasks []*goals.Task)
	visit = func(tasks []*goals.Task) {
		for _, t := range tasks {
			if a.engine.IsOverdue(t, now) {
				nodes = append(nodes, t)
			}
			visit(goals.ActiveSubtasks(t))
		}
	}
	for _, g := range all {
		if a.engine.IsOverdue(g, now) {
			nodes = append(nodes, g)
		}
		visit(goals.ActiveRootTasks(g))
	}
	return nodes
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every goal tree is internally consistent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			all, err := a.store.FetchAll(store.SortByStart)
			if err != nil {
				return err
			}

			var failed []error
			problems := map[string][]string{}
			for _, g := range all {
				err := a.engine.CheckInvariants(g)
				if err == nil {
					continue
				}
				failed = append(failed, err)
				var joined interface{ Unwrap() []error }
				if errors.As(err, &joined) {
					for _, e := range joined.Unwrap() {
						problems[g.ID] = append(problems[g.ID], e.Error())
					}
				} else {
					problems[g.ID] = append(problems[g.ID], err.Error())
				}
			}

			if a.jsonOut {
				if err := outputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"goals":    len(all),
					"problems": problems,
				}); err != nil {
					return err
				}
			} else {
				for _, g := range all {
					for _, p := range problems[g.ID] {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", g.Title, p)
					}
				}
				if len(failed) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d goals checked, no problems found\n", len(all))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d goals are inconsistent: %w", len(failed), len(all), goals.ErrInvariant)
			}
			return nil
		},
	}
}
