package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session without contacting the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		sdk, err := newSdk(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		out := cmd.OutOrStdout()
		st := sdk.Status(cmd.Context())
		fmt.Fprintf(out, "API: %s\n", sdk.BaseURL)
		if !st.LoggedIn {
			fmt.Fprintln(out, "Not logged in")
			return nil
		}

		fmt.Fprintf(out, "User ID: %s\n", orUnknown(st.Subject))
		if st.ExpiresAt.IsZero() {
			fmt.Fprintln(out, "Access token expires: unknown")
		} else {
			fmt.Fprintf(out, "Access token expires: %s (%s)\n",
				st.ExpiresAt.Format(time.RFC3339), time.Until(st.ExpiresAt).Round(time.Second))
		}
		switch {
		case st.SoftlyValid:
			fmt.Fprintln(out, "Status: valid")
		case st.StrictlyValid:
			fmt.Fprintln(out, "Status: expiring soon, renewed on next request")
		default:
			fmt.Fprintln(out, "Status: expired, renewed on next request")
		}
		return nil
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func init() {
	authCmd.AddCommand(statusCmd)
}
