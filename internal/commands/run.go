package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/healthwatch/internal/daemon"
	"github.com/dwsmith1983/healthwatch/internal/logging"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var path string
	var ov overrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor until interrupted",
		Long: `Samples the configured metric every pollIntervalMs, evaluates it against
the threshold and sends an alert to every configured sink on each violation.
Stops on SIGINT/SIGTERM after the in-flight cycle completes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, path, &ov)
		},
	}

	addConfigFlag(cmd, &path)
	addOverrideFlags(cmd, &ov)
	return cmd
}

func runMonitor(cmd *cobra.Command, path string, ov *overrides) error {
	cfg, err := loadConfig(cmd, path, ov)
	if err != nil {
		return err
	}

	logger, closer := logging.Init(cfg.Logging)
	defer func() { _ = closer.Close() }()

	run := func(ctx context.Context) error {
		return daemon.RunConfig(ctx, cfg, Version, logger)
	}

	if !daemon.Interactive() {
		mgr, err := daemon.NewServiceManager(path, run, logger)
		if err != nil {
			return err
		}
		return mgr.Run()
	}

	logger.Info("healthwatch starting",
		"metric", cfg.MetricName,
		"threshold", *cfg.ThresholdValue,
		"comparison", cfg.Comparison,
		"intervalMs", cfg.PollIntervalMs,
	)
	if err := daemon.RunForeground(cmd.Context(), run); err != nil {
		return err
	}
	color.Green("healthwatch stopped")
	return nil
}
