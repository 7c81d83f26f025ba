package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
)

func (a *app) goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
	}
	cmd.AddCommand(
		a.goalAddCmd(),
		a.goalListCmd(),
		a.goalShowCmd(),
		a.goalToggleCmd(),
		a.goalDeadlineCmd(),
		a.goalDeleteCmd(),
	)
	return cmd
}

func (a *app) goalAddCmd() *cobra.Command {
	var (
		deadline   string
		cad        string
		motivation string
		categories []string
		tasks      []string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			due, err := a.parseDay(deadline)
			if err != nil {
				return err
			}
			c, err := parseCadence(cad)
			if err != nil {
				return err
			}
			spec := goals.GoalSpec{
				Title:        args[0],
				Motivation:   motivation,
				HardDeadline: due,
				Cadence:      c,
			}
			for _, name := range categories {
				spec.Categories = append(spec.Categories, goals.Category(strings.ToLower(name)))
			}
			for _, title := range tasks {
				spec.Tasks = append(spec.Tasks, goals.TaskSpec{Title: title, HardDeadline: due})
			}

			g, err := a.engine.NewGoal(spec)
			if err != nil {
				return err
			}
			if err := a.store.Insert(g); err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), goalToMap(a.engine, g))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s: %s\n", shortID(g.ID), g.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "hard deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cad, "cadence", "", "recurrence: never, daily, weekly, monthly or quarterly")
	cmd.Flags().StringVar(&motivation, "motivation", "", "why this goal matters")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "category tag (repeatable)")
	cmd.Flags().StringArrayVar(&tasks, "task", nil, "initial root task (repeatable)")
	return cmd
}

func (a *app) goalListCmd() *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := store.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			all, err := a.store.FetchAll(key)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), goalsToMap(a.engine, all))
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals yet. Add one with 'anchor goal add'.")
				return nil
			}

			now := a.engine.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tDUE\tPROGRESS\tTITLE")
			for _, g := range all {
				state := string(g.State)
				if a.engine.IsOverdue(g, now) {
					state = "overdue"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
					shortID(g.ID), state, formatDay(g.Limit()), a.engine.Progress(g)*100, g.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "start", "sort by start, deadline or title")
	return cmd
}

func (a *app) goalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a goal and its task tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			g, err := a.resolveGoal(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), goalToMap(a.engine, g))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s  %s\n", stateMark(g), shortID(g.ID), g.Title)
			fmt.Fprintf(out, "  due %s  hard %s  progress %.0f%%", formatDay(g.Limit()), formatDay(g.HardDeadline), a.engine.Progress(g)*100)
			if g.IsRecurring() {
				fmt.Fprintf(out, "  (%s)", strings.ToLower(g.Cadence.String()))
			}
			fmt.Fprintln(out)
			if g.Motivation != "" {
				fmt.Fprintf(out, "\n%s\n\n", strings.TrimSpace(g.Motivation))
			}
			printTasks(out, goals.ActiveRootTasks(g), 1)
			return nil
		},
	}
}

func (a *app) goalToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Complete or reopen a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			g, err := a.resolveGoal(args[0])
			if err != nil {
				return err
			}
			wasDone := g.IsCompleted()
			if err := a.engine.ToggleGoal(g); err != nil {
				if errors.Is(err, goals.ErrBlocked) {
					return fmt.Errorf("%s: %w", g.Title, err)
				}
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), goalToMap(a.engine, g))
			}
			fmt.Fprintln(cmd.OutOrStdout(), toggleMessage(g, wasDone))
			return nil
		},
	}
}

func (a *app) goalDeadlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadline <id> <YYYY-MM-DD>",
		Short: "Change a goal's hard deadline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			g, err := a.resolveGoal(args[0])
			if err != nil {
				return err
			}
			due, err := a.parseDay(args[1])
			if err != nil {
				return err
			}
			if err := a.engine.UpdateGoalDeadline(g, *due); err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), goalToMap(a.engine, g))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now due %s\n", g.Title, formatDay(g.HardDeadline))
			return nil
		},
	}
}

func (a *app) goalDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			g, err := a.resolveGoal(args[0])
			if err != nil {
				return err
			}
			if err := a.store.Delete(g); err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{"deleted": g.ID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %s: %s\n", shortID(g.ID), g.Title)
			return nil
		},
	}
}

// toggleMessage describes the outcome of a toggle on n, which was completed
// before the toggle when wasDone is set.
func toggleMessage(n goals.Node, wasDone bool) string {
	switch {
	case wasDone:
		return "Reopened: " + n.NodeTitle()
	case n.IsCompleted():
		return "Completed: " + n.NodeTitle()
	default:
		return fmt.Sprintf("%s next due %s", n.NodeTitle(), formatDay(n.Limit()))
	}
}
