package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/goals"
)

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks beneath a goal",
	}
	cmd.AddCommand(
		a.taskAddCmd(),
		a.taskToggleCmd(),
		a.taskDeadlineCmd(),
		a.taskCadenceCmd(),
		a.taskCompleteAllCmd(),
		a.taskDeleteCmd(),
	)
	return cmd
}

func (a *app) taskAddCmd() *cobra.Command {
	var (
		deadline   string
		cad        string
		difficulty string
		habit      string
	)
	cmd := &cobra.Command{
		Use:   "add <parent-id> <title>",
		Short: "Add a task under a goal or another task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			parent, err := a.resolve(args[0])
			if err != nil {
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
			d, err := parseDifficulty(difficulty)
			if err != nil {
				return err
			}
			spec := goals.TaskSpec{
				Title:        args[1],
				Difficulty:   d,
				Cadence:      c,
				HardDeadline: due,
			}
			if habit != "" {
				spec.Habit = &goals.HabitBinding{Label: habit}
			}

			var t *goals.Task
			switch p := parent.(type) {
			case *goals.Goal:
				t, err = a.engine.AddRootTask(p, spec)
			case *goals.Task:
				t, err = a.engine.AddSubtask(p, spec)
			}
			if err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), taskToMap(t))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s: %s (due %s)\n", shortID(t.ID), t.Title, formatDay(t.Limit()))
			return nil
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "hard deadline (YYYY-MM-DD), pulled back to the parent's")
	cmd.Flags().StringVar(&cad, "cadence", "", "recurrence: never, daily, weekly, monthly or quarterly")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or difficult")
	cmd.Flags().StringVar(&habit, "habit", "", "routine this task is anchored to")
	return cmd
}

func (a *app) taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Complete or reopen a task; recurring tasks advance to their next cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			t, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			wasDone := t.IsCompleted()
			if err := a.engine.ToggleTask(t); err != nil {
				if errors.Is(err, goals.ErrBlocked) {
					return fmt.Errorf("%s: %w", t.Title, err)
				}
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), taskToMap(t))
			}
			fmt.Fprintln(cmd.OutOrStdout(), toggleMessage(t, wasDone))
			return nil
		},
	}
}

func (a *app) taskDeadlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadline <id> <YYYY-MM-DD>",
		Short: "Change a task's hard deadline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			t, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			due, err := a.parseDay(args[1])
			if err != nil {
				return err
			}
			if err := a.engine.UpdateDeadline(t, *due); err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), taskToMap(t))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now due %s\n", t.Title, formatDay(t.Limit()))
			return nil
		},
	}
}

func (a *app) taskCadenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cadence <id> <never|daily|weekly|monthly|quarterly>",
		Short: "Change how often a task recurs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCadence(args[1])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			t, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			if !a.engine.UpdateCadence(t, c) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s is already %s\n", t.Title, strings.ToLower(c.String()))
			} else if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), taskToMap(t))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s recurs %s, due %s\n", t.Title, strings.ToLower(t.Cadence.String()), formatDay(t.Limit()))
			return nil
		},
	}
}

func (a *app) taskCompleteAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-all <id>",
		Short: "Complete a task and everything beneath it, through every remaining cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			t, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			a.engine.CompleteSubtree(t)
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), taskToMap(t))
			}
			counts := a.engine.SubtreeCounts(t)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d complete\n", t.Title, counts.Completed, counts.Total)
			return nil
		},
	}
}

func (a *app) taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			t, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := a.engine.DeleteTask(t); err != nil {
				return err
			}
			if err := a.commit(); err != nil {
				return err
			}
			if a.jsonOut {
				return outputJSON(cmd.OutOrStdout(), map[string]interface{}{"deleted": t.ID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %s\n", shortID(t.ID), t.Title)
			return nil
		},
	}
}

func parseDifficulty(s string) (goals.Difficulty, error) {
	switch d := goals.Difficulty(strings.ToLower(s)); d {
	case "":
		return goals.DifficultyMedium, nil
	case goals.DifficultyEasy, goals.DifficultyMedium, goals.DifficultyDifficult:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q (use easy, medium or difficult)", s)
	}
}
