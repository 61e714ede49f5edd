package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time; local builds report "dev".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "paperhome",
	Short:        "E-paper home dashboard",
	Version:      version,
	SilenceUsage: true,
	RunE:         runDaemon,
}

func main() {
	rootCmd.AddCommand(runCmd, setupCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
