package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stefanpenner/anchor/pkg/config"
	gitsync "github.com/stefanpenner/anchor/pkg/sync"
)

func (a *app) initCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up the data directory as a git repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			git := gitsync.New(a.dataDir, cmd.OutOrStdout(), a.logger)
			if err := git.Init(cmd.Context(), remote); err != nil {
				return err
			}

			path := config.Path(a.dataDir)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := a.cfg.SaveToFile(path); err != nil {
					return err
				}
				a.logger.Info("wrote default config", "path", path)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized anchor in %s\n", a.dataDir)
			if remote != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Remote: %s\n", remote)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "git remote URL to sync with")
	return cmd
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Commit local changes and synchronize with the git remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			git := gitsync.New(a.dataDir, cmd.OutOrStdout(), a.logger)
			if err := git.Sync(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete.")
			return nil
		},
	}
}
