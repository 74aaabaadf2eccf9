package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the access token now",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, err := newSdk(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		if err := sdk.Refresh(cmd.Context()); err != nil {
			return friendlyError(err)
		}
		if st := sdk.Status(cmd.Context()); !st.ExpiresAt.IsZero() {
			fmt.Fprintf(cmd.OutOrStdout(), "Access token renewed, expires %s\n", st.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Access token renewed")
		return nil
	},
}

func init() {
	authCmd.AddCommand(refreshCmd)
}
