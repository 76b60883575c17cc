package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	var path string
	var ov overrides

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file without starting the monitor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, path, &ov)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s %s is valid\n", color.GreenString("✓"), path)
			_, _ = fmt.Fprintf(out, "  metric:    %s\n", cfg.MetricName)
			_, _ = fmt.Fprintf(out, "  threshold: %s %g\n", cfg.Comparison, *cfg.ThresholdValue)
			_, _ = fmt.Fprintf(out, "  interval:  %dms\n", cfg.PollIntervalMs)
			_, _ = fmt.Fprintf(out, "  alerts:    %d sink(s)\n", len(cfg.Alerts))
			return nil
		},
	}

	addConfigFlag(cmd, &path)
	addOverrideFlags(cmd, &ov)
	return cmd
}
