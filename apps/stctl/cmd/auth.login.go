package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a username or email and password",
	Long: `Log in to the SkinTwin API and store the issued tokens.

Examples:
	# prompt for the password
	stctl auth login -u alice

	# non-interactive
	SKINTWIN_PASSWORD=... stctl auth login -u alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		if username == "" {
			var err error
			if username, err = prompt(cmd, "Username or email: "); err != nil {
				return err
			}
		}
		if password == "" {
			password = os.Getenv("SKINTWIN_PASSWORD")
		}
		if password == "" {
			var err error
			if password, err = promptSecret(cmd, "Password: "); err != nil {
				return err
			}
		}

		sdk, err := newSdk(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		res, err := sdk.Login(cmd.Context(), username, password)
		if err != nil {
			return friendlyError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged in as: %s <%s>\n", res.User.Username, res.User.Email)
		if st := sdk.Status(cmd.Context()); !st.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Access token expires: %s\n", st.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username or email address")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when empty, or read from SKINTWIN_PASSWORD)")
	authCmd.AddCommand(loginCmd)
}
