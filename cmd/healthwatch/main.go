package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/healthwatch/internal/commands"
)

var version = "dev"

func main() {
	commands.Version = version

	root := &cobra.Command{
		Use:   "healthwatch",
		Short: "Threshold monitor for host resource usage",
		Long: `healthwatch samples one host metric (CPU by default) on a fixed cadence,
compares each sample against a threshold and sends an alert to the configured
sinks whenever the threshold is violated.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewValidateCmd(),
		commands.NewCheckCmd(),
		commands.NewRunCmd(),
		commands.NewServiceCmd(),
	)

	if err := root.Execute(); err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
