package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/quatton/skintwin/pkg/stlog"
	"github.com/quatton/skintwin/pkg/stsdk"
	"github.com/spf13/cobra"
)

type contextKey string

const configContextKey contextKey = "skintwinconfig"

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "stctl",
		Short: "CLI for the SkinTwin API session (login, register, logout, status)",
		Long: `stctl manages your session with a SkinTwin API server.

Use the auth subcommands to log in, register, log out and inspect the
stored session; use me to fetch your profile through the authenticated
client. Tokens are kept in the OS keyring by default, or in Valkey or
memory depending on the "store" setting.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := stsdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			v := cfg.Viper()
			if err := v.BindPFlag(stsdk.BaseUrlKey, cmd.Flags().Lookup("base-url")); err != nil {
				return err
			}
			if err := v.BindPFlag(stsdk.StoreKey, cmd.Flags().Lookup("store")); err != nil {
				return err
			}
			if err := cfg.Reload(); err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*stsdk.Config, error) {
	ctx := cmd.Context()
	cfg, ok := ctx.Value(configContextKey).(*stsdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func logger() *stlog.Logger {
	if verbose {
		return stlog.NewVerbose()
	}
	return stlog.NewDefault()
}

// newSdk builds an Sdk from the command's config. Callers must Close it.
func newSdk(cmd *cobra.Command) (*stsdk.Sdk, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, err
	}
	return stsdk.NewSdk(cmd.Context(), cfg, stsdk.WithLogger(logger()))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: skintwin.yaml, .skintwin/config.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL of the SkinTwin API (overrides config)")
	rootCmd.PersistentFlags().String("store", "", "Credential store: keyring, memory or valkey (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log session renewals and other debug output")
}
