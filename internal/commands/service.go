package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/healthwatch/internal/config"
	"github.com/dwsmith1983/healthwatch/internal/daemon"
)

// NewServiceCmd creates the service command and its install/control
// subcommands.
func NewServiceCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install and control healthwatch as a system service",
	}
	cmd.PersistentFlags().StringVarP(&path, "config", "c", config.DefaultFile, "Config file the service runs with")

	action := func(use, short, done string, fn func(*daemon.ServiceManager) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := loadConfig(cmd, path, nil); err != nil {
					return err
				}
				mgr, err := newServiceManager(path)
				if err != nil {
					return err
				}
				if err := fn(mgr); err != nil {
					return fmt.Errorf("%s: %w", use, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓"), done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("install", "Register the service", "service installed", (*daemon.ServiceManager).Install),
		action("uninstall", "Stop and remove the service", "service uninstalled", (*daemon.ServiceManager).Uninstall),
		action("start", "Start the installed service", "service started", (*daemon.ServiceManager).Start),
		action("stop", "Stop the installed service", "service stopped", (*daemon.ServiceManager).Stop),
		action("restart", "Restart the installed service", "service restarted", (*daemon.ServiceManager).Restart),
		&cobra.Command{
			Use:   "status",
			Short: "Show the service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := newServiceManager(path)
				if err != nil {
					return err
				}
				st, err := mgr.Status()
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), st)
				return nil
			},
		},
	)
	return cmd
}

// newServiceManager builds a manager for control commands. The run function
// is never invoked from these; the installed service runs `healthwatch run`.
func newServiceManager(path string) (*daemon.ServiceManager, error) {
	return daemon.NewServiceManager(path, func(context.Context) error { return nil }, nil)
}
