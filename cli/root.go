// Package cli implements the winequality command line: serve, train and runs.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "winequality",
		Short:        "Wine quality model training and prediction service",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "YAML config file (defaults apply when missing)")
	cmd.AddCommand(serveCmd(&configPath), trainCmd(&configPath), runsCmd(&configPath))
	return cmd
}
