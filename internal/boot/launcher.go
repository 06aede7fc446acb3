package boot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/paperdex/paperdex/internal/log"
)

// ServiceLauncher starts the web server and scheduler as child processes of
// the boot sequence, re-invoking the running binary with the matching
// subcommand.
type ServiceLauncher struct {
	binary string
	logger log.Logger
}

// NewServiceLauncher creates a launcher that executes binary. Pass the value
// of os.Executable(). logger may be nil.
func NewServiceLauncher(binary string, logger log.Logger) *ServiceLauncher {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ServiceLauncher{
		binary: binary,
		logger: logger.With("component", "boot"),
	}
}

// StartWebServer launches the web server detached in its own session so it
// survives the sequencer's exit. Returns the child PID. There is deliberately
// no context here: the daemon must outlive the boot sequence's cancellation.
func (l *ServiceLauncher) StartWebServer() (int, error) {
	cmd := exec.Command(l.binary, "serve")
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start web server: %w", err)
	}

	pid := cmd.Process.Pid
	l.logger.Info("web server launched", "pid", pid)

	// Reap the child when it eventually exits so it never lingers as a
	// zombie while the scheduler keeps the sequencer alive.
	go func() {
		err := cmd.Wait()
		l.logger.Info("web server exited", "pid", pid, "error", err)
	}()

	return pid, nil
}

// RunScheduler runs the scheduler in the foreground. The call blocks until
// the scheduler exits, tying the sequencer's lifetime to it.
func (l *ServiceLauncher) RunScheduler(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, l.binary, "scheduler")
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	l.logger.Info("scheduler starting in foreground")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run scheduler: %w", err)
	}
	return nil
}
