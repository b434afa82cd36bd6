// Package cmd defines the CLI commands for the snapshotd executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshotd",
		Short: "Reconciles asynchronous scrape snapshots with bookmark records.",
		Long: `snapshotd polls the scrape provider for outstanding snapshots, downloads
ready results, extracts normalized content per source kind, and applies the
fields to the matching bookmark records in the backend store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment-only)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newOnceCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
