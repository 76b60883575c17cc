package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kardianos/service"
)

// RunFunc runs the workload until ctx is cancelled.
type RunFunc func(ctx context.Context) error

const defaultStopTimeout = 15 * time.Second

// program adapts a RunFunc to service.Interface.
type program struct {
	run         RunFunc
	logger      *slog.Logger
	stopTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func newProgram(run RunFunc, logger *slog.Logger) *program {
	if logger == nil {
		logger = slog.Default()
	}
	return &program{run: run, logger: logger, stopTimeout: defaultStopTimeout}
}

// Start launches the workload in the background. The service manager expects
// Start to return promptly.
func (p *program) Start(service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return fmt.Errorf("already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)

	p.logger.Info("healthwatch service starting")
	go func(done chan<- error) {
		err := p.run(ctx)
		if err != nil {
			p.logger.Error("healthwatch stopped with error", "error", err)
		}
		done <- err
	}(p.done)
	return nil
}

// Stop cancels the workload and waits for it to return.
func (p *program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	p.logger.Info("healthwatch service stopping")
	cancel()

	select {
	case err := <-done:
		p.logger.Info("healthwatch service stopped")
		return err
	case <-time.After(p.stopTimeout):
		return fmt.Errorf("service did not stop within %s", p.stopTimeout)
	}
}
