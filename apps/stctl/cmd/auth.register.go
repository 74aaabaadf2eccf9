package cmd

import (
	"fmt"
	"os"

	"github.com/quatton/skintwin/pkg/stsdk"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		req := stsdk.RegisterRequest{}
		req.Username, _ = flags.GetString("username")
		req.Email, _ = flags.GetString("email")
		req.FirstName, _ = flags.GetString("first-name")
		req.LastName, _ = flags.GetString("last-name")
		req.Password, _ = flags.GetString("password")

		if req.Password == "" {
			req.Password = os.Getenv("SKINTWIN_PASSWORD")
		}
		if req.Password == "" {
			var err error
			if req.Password, err = promptSecret(cmd, "Password: "); err != nil {
				return err
			}
			if req.PasswordConfirm, err = promptSecret(cmd, "Confirm password: "); err != nil {
				return err
			}
		} else {
			req.PasswordConfirm = req.Password
		}

		sdk, err := newSdk(cmd)
		if err != nil {
			return err
		}
		defer sdk.Close()

		res, err := sdk.Register(cmd.Context(), req)
		if err != nil {
			return friendlyError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as: %s <%s>\n", res.User.Username, res.User.Email)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringP("username", "u", "", "Username (derived from the email when empty)")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (prompted when empty, or read from SKINTWIN_PASSWORD)")
	registerCmd.Flags().String("first-name", "", "Given name")
	registerCmd.Flags().String("last-name", "", "Family name")
	_ = registerCmd.MarkFlagRequired("email")
	authCmd.AddCommand(registerCmd)
}
