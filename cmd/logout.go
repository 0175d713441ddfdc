// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"supersetctl/cli/internal/keychain"
)

var logoutAll bool

// logoutCmd removes the stored Superset credentials. Superset has no server side
// logout for token sessions, so nothing is sent to the server.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored password, tokens and login state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if logoutAll {
			_ = km.ClearAll()
			pterm.Success.Println("All supersetctl secrets have been removed, including the warehouse DSN")
			return nil
		}
		_ = km.ClearAuth()
		pterm.Success.Println("Credentials and tokens have been removed")
		return nil
	},
}

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "also remove the stored warehouse DSN")
	rootCmd.AddCommand(logoutCmd)
}
