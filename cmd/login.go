// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"supersetctl/cli/internal/auth"
	"supersetctl/cli/internal/config"
	"supersetctl/cli/internal/dsn"
	apperr "supersetctl/cli/internal/errors"
	"supersetctl/cli/internal/terminal"
)

var (
	loginRemember     bool
	loginSaveConfig   bool
	loginWarehouseDSN string
)

// loginCmd authenticates against Superset with a database account and keeps the
// credentials in the OS keychain.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Superset and store the credentials in the OS keychain",
	Long: `The login command authenticates with the Superset database auth provider.
Missing values are prompted for when running in a terminal.

With --remember (the default) the password is stored in the OS keychain so later
commands can log in again without prompting; Superset access tokens are short lived.
The server URL and username are written to the config file unless --save-config=false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		cfg := &a.cfg
		interactive := terminal.IsInteractive()

		if cfg.SupersetURL == "" && interactive {
			if cfg.SupersetURL, err = terminal.Prompt(os.Stdin, "Superset URL: "); err != nil {
				return err
			}
			cfg.SupersetURL = strings.TrimRight(cfg.SupersetURL, "/")
		}
		if cfg.Username == "" && interactive {
			if cfg.Username, err = terminal.Prompt(os.Stdin, "Username: "); err != nil {
				return err
			}
		}
		if err := cfg.RequireServer(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Password == "" {
			if !interactive {
				return apperr.New(apperr.Validation, "no password: set SUPERSET_PASSWORD when not running in a terminal")
			}
			if cfg.Password, err = terminal.ReadPassword("Password: "); err != nil {
				return err
			}
		}

		var warehouse string
		if loginWarehouseDSN != "" {
			if warehouse, err = dsn.Normalize(loginWarehouseDSN); err != nil {
				return err
			}
		}

		svc, km, err := a.authService()
		if err != nil {
			return err
		}
		var st auth.State
		err = withSpinner("Logging in", func() error {
			st, _, err = svc.Login(cmd.Context(), a.api(), auth.Credentials{URL: cfg.SupersetURL, Username: cfg.Username, Password: cfg.Password}, loginRemember)
			return err
		})
		if err != nil {
			return err
		}
		if warehouse != "" {
			if err := km.SaveWarehouseDSN(warehouse); err != nil {
				return err
			}
		}
		if loginSaveConfig {
			if err := config.Save(*cfg, cfg.Path); err != nil {
				pterm.Warning.Printf("Could not save config: %v\n", err)
			}
		}

		if st.UserID > 0 {
			pterm.Success.Printf("Logged in to %s as %s (user id %d)\n", st.URL, st.Username, st.UserID)
		} else {
			pterm.Success.Printf("Logged in to %s as %s\n", st.URL, st.Username)
		}
		if !loginRemember {
			pterm.Info.Println("Password not stored: set SUPERSET_PASSWORD for later commands.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginRemember, "remember", true, "store the password in the OS keychain")
	loginCmd.Flags().BoolVar(&loginSaveConfig, "save-config", true, "write the URL and username to the config file")
	loginCmd.Flags().StringVar(&loginWarehouseDSN, "warehouse-dsn", "", "PostgreSQL DSN of the warehouse, stored in the keychain for dry-run column lookups")
	rootCmd.AddCommand(loginCmd)
}
