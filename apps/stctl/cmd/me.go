package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the profile of the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, err := newSdk(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		u, err := sdk.Profile(cmd.Context())
		if err != nil {
			return friendlyError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Username: %s\n", u.Username)
		fmt.Fprintf(out, "Email: %s\n", u.Email)
		if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
			fmt.Fprintf(out, "Name: %s\n", name)
		}
		fmt.Fprintf(out, "ID: %s\n", u.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(meCmd)
}
