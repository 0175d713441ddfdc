// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/resource"
)

var (
	datasetSchema  string
	datasetDttm    string
	datasetRefresh bool
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage Superset datasets",
}

var datasetEnsureCmd = &cobra.Command{
	Use:   "ensure TABLE",
	Short: "Create the dataset for a table unless it exists",
	Args:  cobra.ExactArgs(1),
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

		ctx := cmd.Context()
		var out resource.Outcome
		err = withSpinner("Ensuring dataset "+args[0], func() error {
			out, err = s.EnsureDataset(ctx, args[0], datasetSchema)
			if err != nil {
				return err
			}
			if datasetDttm != "" {
				if err := s.SetMainDatetimeColumn(ctx, out.ID, datasetDttm); err != nil {
					return err
				}
			}
			if datasetRefresh && !out.Created {
				return s.RefreshDataset(ctx, out.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}
		verb := "exists"
		if out.Created {
			verb = "created"
		}
		pterm.Success.Printf("Dataset %s %s (id %d)\n", args[0], verb, out.ID)
		dryRunBanner(s.DryRun())
		return nil
	},
}

var datasetRefreshCmd = &cobra.Command{
	Use:   "refresh ID",
	Short: "Re-read a dataset's columns from its table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return apperr.Newf(apperr.Validation, "dataset id must be a positive number, got %q", args[0])
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
		if err := s.RefreshDataset(cmd.Context(), id); err != nil {
			return err
		}
		pterm.Success.Printf("Dataset %d refreshed\n", id)
		dryRunBanner(s.DryRun())
		return nil
	},
}

func init() {
	datasetEnsureCmd.Flags().StringVar(&datasetSchema, "schema", "", "table schema (default from config)")
	datasetEnsureCmd.Flags().StringVar(&datasetDttm, "dttm", "", "column to use as the dataset's main time column")
	datasetEnsureCmd.Flags().BoolVar(&datasetRefresh, "refresh", false, "refresh columns when the dataset already exists")
	datasetCmd.AddCommand(datasetEnsureCmd, datasetRefreshCmd)
	rootCmd.AddCommand(datasetCmd)
}
