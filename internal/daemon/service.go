package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kardianos/service"
)

// ServiceName is the name registered with the host service manager.
const ServiceName = "healthwatch"

// ServiceManager installs and controls healthwatch as a system service.
type ServiceManager struct {
	service service.Service
	program *program
}

// NewServiceManager prepares a service definition that runs
// `healthwatch run --config <configPath>` under the host service manager.
func NewServiceManager(configPath string, run RunFunc, logger *slog.Logger) (*ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	prg := newProgram(run, logger)
	s, err := service.New(prg, serviceConfig(execPath, absConfig))
	if err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}
	return &ServiceManager{service: s, program: prg}, nil
}

func serviceConfig(execPath, configPath string) *service.Config {
	return &service.Config{
		Name:        ServiceName,
		DisplayName: "healthwatch",
		Description: "Samples a host metric on a fixed cadence and alerts on threshold violations.",
		Executable:  execPath,
		Arguments:   []string{"run", "--config", configPath},
		Option: service.KeyValue{
			// systemd
			"Restart":    "on-failure",
			"RestartSec": "10",
			"KillMode":   "process",
			// windows
			"OnFailure":    "restart",
			"RestartDelay": 10000,
			// launchd / upstart
			"KeepAlive": true,
			"RunAtLoad": true,
		},
	}
}

// Install registers the service.
func (m *ServiceManager) Install() error { return m.service.Install() }

// Uninstall stops the service if it is running and removes it.
func (m *ServiceManager) Uninstall() error {
	_ = m.service.Stop()
	return m.service.Uninstall()
}

// Start asks the service manager to start the service.
func (m *ServiceManager) Start() error { return m.service.Start() }

// Stop asks the service manager to stop the service.
func (m *ServiceManager) Stop() error { return m.service.Stop() }

// Restart asks the service manager to restart the service.
func (m *ServiceManager) Restart() error { return m.service.Restart() }

// Status reports the installed service's state.
func (m *ServiceManager) Status() (string, error) {
	st, err := m.service.Status()
	if err != nil {
		return "", err
	}
	return statusString(st), nil
}

// Run hands control to the service manager. Only valid when launched by one.
func (m *ServiceManager) Run() error { return m.service.Run() }

func statusString(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	case service.StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status %d", st)
	}
}

// Interactive reports whether the process was started from a terminal rather
// than by a service manager.
func Interactive() bool { return service.Interactive() }

// RunForeground runs fn until SIGINT or SIGTERM.
func RunForeground(ctx context.Context, fn RunFunc) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx)
}
