// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the supersetctl command-line interface. Commands build a
// toolkit session from the configuration, run one toolkit or batch operation and
// render the outcome with pterm.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"supersetctl/cli/internal/logging"
	"supersetctl/cli/internal/terminal"
)

var (
	flagConfig     string
	flagVerbose    bool
	flagDryRun     bool
	flagBestEffort bool
	flagURL        string
	flagUser       string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "supersetctl",
	Short: "Manage Apache Superset datasets, charts and dashboards on behalf of users",
	Long: `supersetctl creates Superset datasets, charts and dashboards idempotently,
composes dashboard layouts and moves or removes everything a user owns.

Mutating commands accept --dry-run, which reports what would happen without
changing anything on the server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		if c == nil {
			c = rootCmd
		}
		action := "running " + c.CommandPath()
		if terminal.IsInteractive() {
			logging.Present(action, err)
		} else {
			fmt.Fprintln(os.Stderr, logging.PresentError(action, err))
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default $SUPERSETCTL_CONFIG or ~/.config/supersetctl/config.yaml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output")
	pf.BoolVar(&flagDryRun, "dry-run", false, "report what would change without changing anything")
	pf.BoolVar(&flagBestEffort, "best-effort", false, "fall back to default_owner_id when a user cannot be resolved")
	pf.StringVar(&flagURL, "url", "", "Superset base URL (overrides superset_url)")
	pf.StringVarP(&flagUser, "user", "u", "", "Superset username (overrides username)")
}
