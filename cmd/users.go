// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/toolkit"
)

var (
	migrateFrom string
	migrateTo   string
	cleanupUser string
	cleanupYes  bool
	summaryUser string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Hand every chart and dashboard of one user to another",
	Long: `Replaces --from with --to in the owners of every chart and dashboard --from owns.
Other co-owners are kept. Use --dry-run to list what would move.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == "" || migrateTo == "" {
			return apperr.New(apperr.Validation, "--from and --to are required")
		}
		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		mr, err := a.orchestrator(s).MigrateUserResources(cmd.Context(), migrateFrom, migrateTo, flagDryRun)
		if mr.FromID == 0 || mr.ToID == 0 {
			return err
		}
		finishBatch(a, s, "migrate", mr.Result)
		pterm.Info.Printf("%s (id %d) → %s (id %d): %d charts, %d dashboards\n",
			migrateFrom, mr.FromID, migrateTo, mr.ToID, len(mr.ChartIDs), len(mr.DashboardIDs))
		if err != nil {
			return err
		}
		return failedItems(mr.Result)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete every chart and dashboard a user owns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanupUser == "" {
			return apperr.New(apperr.Validation, "--target is required")
		}
		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		o := a.orchestrator(s)
		if !flagDryRun && !cleanupYes {
			preview, err := o.CleanupUser(cmd.Context(), cleanupUser, true)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Delete %d charts and %d dashboards owned by %s?", len(preview.ChartIDs), len(preview.DashboardIDs), cleanupUser)
			ok, err := confirm(msg, pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show)
			if err != nil {
				return err
			}
			if !ok {
				pterm.Info.Println("Nothing deleted")
				return nil
			}
		}

		cr, err := o.CleanupUser(cmd.Context(), cleanupUser, flagDryRun)
		if cr.UserID == 0 {
			return err
		}
		finishBatch(a, s, "cleanup", cr.Result)
		if err != nil {
			return err
		}
		return failedItems(cr.Result)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show what a user owns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		s, release, err := a.session(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		var sum toolkit.UserSummary
		err = withSpinner("Collecting resources", func() error {
			sum, err = s.UserSummary(cmd.Context(), summaryUser)
			return err
		})
		if err != nil {
			return err
		}
		lines := []string{
			fmt.Sprintf("User:       %s (id %d)", sum.Username, sum.UserID),
			fmt.Sprintf("Charts:     %d", len(sum.Charts)),
			fmt.Sprintf("Dashboards: %d", len(sum.Dashboards)),
		}
		for _, vc := range sum.VizTypes() {
			lines = append(lines, "  "+vc.VizType+": "+strconv.Itoa(vc.Count))
		}
		renderBox("Summary", lines...)
		renderSummaries("Dashboards", sum.Dashboards)
		return nil
	},
}

// confirm asks msg through ask. A prompt that cannot be shown, e.g. without a
// terminal, is an error that points at --yes.
func confirm(msg string, ask func(text ...string) (bool, error)) (bool, error) {
	ok, err := ask(msg)
	if err != nil {
		return false, apperr.Wrap(apperr.Validation, "cannot ask for confirmation; pass --yes to delete without asking", err)
	}
	return ok, nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "current owner (username, or id:<n>)")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "new owner (username, or id:<n>)")
	cleanupCmd.Flags().StringVar(&cleanupUser, "target", "", "user whose resources are deleted (username, or id:<n>)")
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "do not ask for confirmation")
	summaryCmd.Flags().StringVar(&summaryUser, "target", "", "user to summarize (default: yourself)")
	rootCmd.AddCommand(migrateCmd, cleanupCmd, summaryCmd)
}
