// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"supersetctl/cli/internal/toolkit"
)

// statusCmd logs in and checks that the server answers and the own identity
// resolves. It changes nothing.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connection to Superset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		var st toolkit.Status
		err = withSpinner("Checking connection", func() error {
			s, release, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			st = s.ValidateConnection(cmd.Context())
			return st.Err
		})
		if err != nil {
			return err
		}
		renderBox("Connected",
			fmt.Sprintf("Server:     %s", st.URL),
			fmt.Sprintf("User:       %s (id %d)", st.Username, st.UserID),
			fmt.Sprintf("Dashboards: %d", st.Dashboards),
			fmt.Sprintf("Charts:     %d", st.Charts),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
