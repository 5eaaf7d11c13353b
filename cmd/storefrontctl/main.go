// Package main provides storefrontctl, the operator CLI of the membership service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "storefrontctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Operate the storefront membership service",
		Long: `storefrontctl runs maintenance tasks against the membership database:
schema migrations, the expiry sweep, analytics exports and
development tokens. Configuration is read from the environment
and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		migrateCmd(),
		expireCmd(),
		exportCmd(),
		tokenCmd(),
		emailTestCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}
