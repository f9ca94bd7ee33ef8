package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the Trimly admin CLI. Subcommands (auth,
// bootstrap, tenant) are attached here.
var rootCmd = &cobra.Command{
	Use:           "trimly",
	Short:         "Trimly admin CLI",
	Long:          "Administrative utilities for Trimly (dev tokens, schema bootstrap, tenant management).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
