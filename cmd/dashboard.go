// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"supersetctl/cli/internal/batch"
	apperr "supersetctl/cli/internal/errors"
)

var (
	dashboardFilePath string
	dashboardOwner    string
	dashboardTitle    string
	dashboardSlug     string
	dashboardCharts   []string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Create dashboards together with their charts",
}

var dashboardCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dashboard from a YAML definition file or from existing charts",
	Long: `With -f, creates every chart, then the dashboard, lays the charts out in file order
and links them. Rerunning the same file reuses what exists and re-applies the layout.

With --chart, the charts must already exist and are found by exact name, restricted
to the owner when --owner is given:

  supersetctl dashboard create --title "Sales" --chart Revenue --chart Orders

A definition file:

  title: Sales overview
  slug: sales-overview
  owner: alice
  charts_per_row: 2
  charts:
    - name: Revenue
      table: orders
      type: big_number_total
      metric: {column: amount, aggregate: SUM}
    - name: Orders
      table: orders
      width: 12`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var def dashboardFile
		if len(dashboardCharts) > 0 {
			if dashboardFilePath != "" {
				return apperr.New(apperr.Validation, "use either --file or --chart, not both")
			}
			def = dashboardFile{Title: dashboardTitle, Slug: dashboardSlug}
		} else if err := readYAML(dashboardFilePath, &def); err != nil {
			return err
		}
		if dashboardOwner != "" {
			def.Owner = dashboardOwner
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

		var res batch.DashboardResult
		err = withSpinner("Building dashboard "+def.Title, func() error {
			if len(dashboardCharts) > 0 {
				res, err = a.orchestrator(s).CreateDashboard(cmd.Context(), def.existing(dashboardCharts), flagDryRun)
			} else {
				res, err = a.orchestrator(s).CreateDashboardWithCharts(cmd.Context(), def.request(), flagDryRun)
			}
			return err
		})
		var partial *batch.PartialError
		if errors.As(err, &partial) {
			pterm.Warning.Printf("Stopped at the %s stage; %d charts were done and are kept\n", partial.Stage, len(partial.Completed.ChartIDs))
			res = partial.Completed
		} else if err != nil {
			return err
		}

		verb := "updated"
		if res.Created {
			verb = "created"
		}
		if err == nil {
			renderBox("Dashboard "+verb,
				fmt.Sprintf("Title:     %s", def.Title),
				fmt.Sprintf("Id:        %d", res.DashboardID),
				fmt.Sprintf("Charts:    %s", joinIDs(res.ChartIDs)),
				fmt.Sprintf("New links: %d", res.Linked),
			)
		}
		dryRunBanner(res.Simulated)
		return err
	},
}

var dashboardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dashboards, optionally by owner",
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
		found, err := s.Dashboards(cmd.Context(), dashboardOwner)
		if err != nil {
			return err
		}
		renderSummaries("Dashboards", found)
		return nil
	},
}

func joinIDs(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ", ")
}

func init() {
	dashboardCreateCmd.Flags().StringVarP(&dashboardFilePath, "file", "f", "", "YAML definition file, - for stdin")
	dashboardCreateCmd.Flags().StringVar(&dashboardOwner, "owner", "", "dashboard owner (overrides the file)")
	dashboardCreateCmd.Flags().StringVar(&dashboardTitle, "title", "", "dashboard title, with --chart")
	dashboardCreateCmd.Flags().StringVar(&dashboardSlug, "slug", "", "dashboard slug, with --chart")
	dashboardCreateCmd.Flags().StringArrayVar(&dashboardCharts, "chart", nil, "name of an existing chart, repeatable, in display order")
	dashboardsListCmd.Flags().StringVar(&dashboardOwner, "owner", "", "only dashboards owned by this username")
	dashboardCmd.AddCommand(dashboardCreateCmd, dashboardsListCmd)
	rootCmd.AddCommand(dashboardCmd)
}
