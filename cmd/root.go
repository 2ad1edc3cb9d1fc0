package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arise",
	Short: "Arise fitness progression engine tooling",
}

// Execute runs the CLI subcommands (migrate etc.).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
