package main

import (
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/store"
	gitsync "github.com/stefanpenner/anchor/pkg/sync"
	"github.com/stefanpenner/anchor/pkg/tui"
)

// logFileName receives logs while the TUI owns the terminal.
const logFileName = "anchor.log"

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}
}

func (a *app) runTUI() error {
	if err := os.MkdirAll(a.dataDir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(a.dataDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	a.setLogOutput(logFile)

	if err := a.open(); err != nil {
		return err
	}

	var git *gitsync.Git
	if g := gitsync.New(a.dataDir, io.Discard, a.logger); g.IsRepo() {
		git = g
	}

	m := tui.NewModel(tui.Options{
		Store:           a.store,
		Engine:          a.engine,
		Git:             git,
		CompletionDelay: a.cfg.TUI.CompletionDelay,
		Logger:          a.logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if fs, ok := a.store.(*store.FileStore); ok {
		stop, err := tui.StartWatcher(fs.GoalsDir(), p.Send, a.logger)
		if err != nil {
			a.logger.Warn("file watcher failed", "error", err)
		} else {
			defer stop()
		}
	}

	_, err = p.Run()
	return err
}
