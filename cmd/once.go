package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharevia/snapshotd/internal/config"
	"github.com/sharevia/snapshotd/internal/logging"
	"github.com/sharevia/snapshotd/internal/metrics"
)

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Runs a single poll cycle and prints the report",
		RunE:  runOnce,
	}
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	metrics.Init()

	p, cleanup, err := buildPoller(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := p.RunOnce(cmd.Context())
	if err != nil {
		return fmt.Errorf("poll cycle: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
