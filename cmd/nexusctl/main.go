// Package main implements nexusctl, an operator CLI for the Volume Service
// exposed by the nexus child lifecycle core: freezing/unfreezing a volume's
// filesystem and classifying it as filesystem-backed or raw-block.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		output     string
	)

	rootCmd := &cobra.Command{
		Use:     "nexusctl",
		Short:   "Operate the nexus child lifecycle core's Volume Service",
		Version: version + " (" + commit + ")",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the agent configuration file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table|json|yaml")

	rootCmd.AddCommand(
		newFreezeCmd(&configPath, &output),
		newUnfreezeCmd(&configPath, &output),
		newFindCmd(&configPath, &output),
	)

	return rootCmd
}
