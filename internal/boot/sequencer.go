// Package boot brings the system from an unknown, possibly dirty state to a
// running one: stale processes terminated, marker files cleared, the store
// initialized, the admin account present, and both services launched.
package boot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
)

// Sweeper terminates leftover service processes.
type Sweeper interface {
	TerminateByKeywords(ctx context.Context, keywords []string) (int, error)
}

// Marker is a process marker file that can be cleared.
type Marker interface {
	Path() string
	Remove() error
}

// StoreInitializer prepares the persistent store. Must be idempotent.
type StoreInitializer interface {
	InitStore(ctx context.Context) error
}

// AdminProvisioner creates the default administrative account. It returns
// paper.ErrDuplicateUser when the account already exists.
type AdminProvisioner interface {
	EnsureAdmin(ctx context.Context) error
}

// Launcher starts the two managed services. StartWebServer takes no context
// because the daemon detaches and must outlive the boot sequence.
type Launcher interface {
	StartWebServer() (int, error)
	RunScheduler(ctx context.Context) error
}

// StepStatus classifies the outcome of a boot step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped" // expected condition absorbed
	StepFailed  StepStatus = "failed"
)

// StepResult records the outcome of one boot step.
type StepResult struct {
	Name   string
	Status StepStatus
	Detail string
	Err    error
}

// Config assembles the sequencer's collaborators.
type Config struct {
	Keywords []string // command-line substrings identifying stale services
	Markers  []Marker
	Pause    time.Duration // settle time between cleanup and launch

	Sweeper     Sweeper
	Store       StoreInitializer
	Provisioner AdminProvisioner
	Launcher    Launcher
}

// Sequencer executes the boot sequence.
type Sequencer struct {
	cfg    Config
	logger log.Logger
}

// NewSequencer creates a Sequencer. logger may be nil.
func NewSequencer(cfg Config, logger log.Logger) *Sequencer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Sequencer{cfg: cfg, logger: logger.With("component", "boot")}
}

// Run executes the full sequence. Cleanup steps absorb their expected
// failure modes; store initialization and service launch are fatal. The
// returned results cover every step attempted, in order. Run blocks for the
// scheduler's lifetime once the launch step begins.
func (s *Sequencer) Run(ctx context.Context) ([]StepResult, error) {
	var results []StepResult

	record := func(r StepResult) {
		results = append(results, r)
		attrs := []any{"step", r.Name, "status", r.Status}
		if r.Detail != "" {
			attrs = append(attrs, "detail", r.Detail)
		}
		switch r.Status {
		case StepFailed:
			attrs = append(attrs, "error", r.Err)
			s.logger.Error("boot step failed", attrs...)
		default:
			s.logger.Info("boot step done", attrs...)
		}
	}

	// 1. Terminate stale processes. No matches is the common case; even a
	// failed scan is not worth aborting a boot over.
	if n, err := s.cfg.Sweeper.TerminateByKeywords(ctx, s.cfg.Keywords); err != nil {
		record(StepResult{Name: "terminate stale processes", Status: StepSkipped,
			Detail: "process scan failed", Err: err})
	} else if n == 0 {
		record(StepResult{Name: "terminate stale processes", Status: StepSkipped,
			Detail: "no stale processes"})
	} else {
		record(StepResult{Name: "terminate stale processes", Status: StepOK,
			Detail: fmt.Sprintf("terminated %d", n)})
	}

	// 2. Remove stale marker files. Missing files are absorbed inside
	// Marker.Remove; anything else means the run directory is broken.
	for _, m := range s.cfg.Markers {
		if err := m.Remove(); err != nil {
			r := StepResult{Name: "remove marker files", Status: StepFailed, Err: err}
			record(r)
			return results, fmt.Errorf("remove marker %s: %w", m.Path(), err)
		}
	}
	record(StepResult{Name: "remove marker files", Status: StepOK})

	// 3. Pause so terminated processes release ports and locks.
	if s.cfg.Pause > 0 {
		select {
		case <-time.After(s.cfg.Pause):
		case <-ctx.Done():
			r := StepResult{Name: "pause", Status: StepFailed, Err: ctx.Err()}
			record(r)
			return results, ctx.Err()
		}
	}
	record(StepResult{Name: "pause", Status: StepOK})

	// 4. Initialize the persistent store. Fatal: nothing downstream works
	// without it.
	if err := s.cfg.Store.InitStore(ctx); err != nil {
		r := StepResult{Name: "initialize store", Status: StepFailed, Err: err}
		record(r)
		return results, fmt.Errorf("initialize store: %w", err)
	}
	record(StepResult{Name: "initialize store", Status: StepOK})

	// 5. Provision the admin account. Already-exists is steady state.
	if err := s.cfg.Provisioner.EnsureAdmin(ctx); err != nil {
		if errors.Is(err, paper.ErrDuplicateUser) {
			record(StepResult{Name: "provision admin", Status: StepSkipped,
				Detail: "account already exists"})
		} else {
			r := StepResult{Name: "provision admin", Status: StepFailed, Err: err}
			record(r)
			return results, fmt.Errorf("provision admin: %w", err)
		}
	} else {
		record(StepResult{Name: "provision admin", Status: StepOK})
	}

	// 6. Launch services: web server detached, scheduler in the foreground.
	pid, err := s.cfg.Launcher.StartWebServer()
	if err != nil {
		r := StepResult{Name: "launch services", Status: StepFailed, Err: err}
		record(r)
		return results, fmt.Errorf("launch web server: %w", err)
	}
	record(StepResult{Name: "launch services", Status: StepOK,
		Detail: fmt.Sprintf("web server pid %d", pid)})

	if err := s.cfg.Launcher.RunScheduler(ctx); err != nil {
		return results, fmt.Errorf("scheduler exited: %w", err)
	}
	return results, nil
}
