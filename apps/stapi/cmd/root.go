package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stapi",
	Short: "SkinTwin development API",
	Long: `stapi runs a local SkinTwin API implementing the account and token
endpoints (login, register, logout, token refresh, profile) for development
and end-to-end testing of clients.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
