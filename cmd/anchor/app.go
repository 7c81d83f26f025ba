package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/config"
	"github.com/stefanpenner/anchor/pkg/goals"
	"github.com/stefanpenner/anchor/pkg/store"
)

// app is the state shared by every command of one invocation.
type app struct {
	dirFlag  string
	logLevel string
	jsonOut  bool

	dataDir string
	cfg     *config.Config
	level   slog.Level
	logger  *slog.Logger
	store   store.Store
	engine  *goals.Engine
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "anchor",
		Short: "Goals, recurring tasks and the deadlines that bind them",
		Long: `Anchor tracks goals as trees of tasks. Recurring tasks advance from cycle to
cycle, and every deadline stays inside the deadlines above it.

Run without a command to open the terminal UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVar(&a.dirFlag, "dir", "", "data directory (default $"+config.EnvDataDir+" or the OS data dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.goalCmd(),
		a.taskCmd(),
		a.focusCmd(),
		a.checkCmd(),
		a.tuiCmd(),
		a.initCmd(),
		a.syncCmd(),
	)
	return root, a
}

// setup resolves the data directory, loads the config and configures slog.
// The store is opened lazily by the commands that need it.
func (a *app) setup(stderr io.Writer) error {
	a.dataDir = config.ResolveDataDir(a.dirFlag)

	cfg, err := config.Load(a.dataDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	levelName := cfg.Log.Level
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return err
	}
	a.level = level
	a.setLogOutput(stderr)
	return nil
}

// setLogOutput points the process logger at w at the configured level.
func (a *app) setLogOutput(w io.Writer) {
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: a.level}))
	slog.SetDefault(a.logger)
}

// open opens the configured store and builds the engine over the configured
// calendar.
func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	s, err := store.Open(a.cfg.StoreOptions(a.dataDir, a.logger))
	if err != nil {
		return err
	}
	a.store = s
	a.engine = goals.New(
		goals.WithCalendar(cadence.NewCalendar(loc)),
		goals.WithLogger(a.logger),
	)
	a.logger.Debug("store opened", "backend", a.cfg.Store.Backend, "dir", a.dataDir)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// commit saves the working set after a mutation.
func (a *app) commit() error {
	if err := a.store.Save(); err != nil {
		a.logger.Error("save failed", "error", err)
		return err
	}
	return nil
}

// resolve finds a goal or task by id or by a unique id prefix.
func (a *app) resolve(ref string) (goals.Node, error) {
	if node, err := a.store.Find(ref); err == nil {
		return node, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	all, err := a.store.FetchAll(store.SortByStart)
	if err != nil {
		return nil, err
	}
	var matches []goals.Node
	for _, g := range all {
		if strings.HasPrefix(g.ID, ref) {
			matches = append(matches, g)
		}
		g.Walk(func(t *goals.Task) bool {
			if strings.HasPrefix(t.ID, ref) {
				matches = append(matches, t)
			}
			return true
		})
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no goal or task with id %q", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func (a *app) resolveGoal(ref string) (*goals.Goal, error) {
	node, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	g, ok := node.(*goals.Goal)
	if !ok {
		return nil, fmt.Errorf("%s is a task, not a goal", ref)
	}
	return g, nil
}

func (a *app) resolveTask(ref string) (*goals.Task, error) {
	node, err := a.resolve(ref)
	if err != nil {
		return nil, err
	}
	t, ok := node.(*goals.Task)
	if !ok {
		return nil, fmt.Errorf("%s is a goal, not a task", ref)
	}
	return t, nil
}

// parseDay reads a YYYY-MM-DD date as the end of that day in the engine's
// calendar. The empty string means no deadline.
func (a *app) parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	cal := a.engine.Calendar()
	day, err := time.ParseInLocation(time.DateOnly, s, cal.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	end := cal.EndOfDay(day)
	return &end, nil
}

func parseCadence(s string) (cadence.Cadence, error) {
	if s == "" {
		return cadence.Never, nil
	}
	return cadence.Parse(s)
}
