package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"supersetctl/cli/internal/auth"
	"supersetctl/cli/internal/keychain"
)

// whoamiCmd shows the stored login without contacting the server. Use "status"
// to check the login against the server.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored Superset login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		st, err := auth.NewStore(km).Load()
		if err != nil || !st.LoggedIn {
			fmt.Println("🔒 You're not logged in yet!")
			fmt.Println("   Run 'supersetctl login' to get started.")
			return nil
		}
		id := "unknown"
		if st.UserID > 0 {
			id = fmt.Sprint(st.UserID)
		}
		fmt.Printf("👤 %s on %s (user id %s)\n", st.Username, st.URL, id)
		pterm.FgGray.Printf("   logged in %s\n", st.LoggedInAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
