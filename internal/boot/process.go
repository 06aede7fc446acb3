package boot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/paperdex/paperdex/internal/log"
)

// ProcessSweeper terminates leftover service processes by scanning the
// process table for command lines containing known keywords.
type ProcessSweeper struct {
	logger log.Logger
}

// NewProcessSweeper creates a ProcessSweeper. logger may be nil.
func NewProcessSweeper(logger log.Logger) *ProcessSweeper {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ProcessSweeper{logger: logger.With("component", "boot")}
}

// TerminateByKeywords sends SIGTERM to every process whose command line
// contains any of the keywords, skipping the calling process itself.
// Returns the number of processes signalled. A process table with no matches
// is not an error; neither is a match that disappears before the signal
// lands.
func (s *ProcessSweeper) TerminateByKeywords(ctx context.Context, keywords []string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	terminated := 0

	for _, p := range procs {
		if p.Pid == self {
			continue
		}

		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil {
			// processes we cannot inspect (permissions, already gone)
			continue
		}

		if !matchesAny(cmdline, keywords) {
			continue
		}

		if err := p.TerminateWithContext(ctx); err != nil {
			s.logger.Debug("terminate failed, process likely gone",
				"pid", p.Pid, "error", err)
			continue
		}

		s.logger.Info("terminated stale process", "pid", p.Pid, "cmdline", cmdline)
		terminated++
	}

	return terminated, nil
}

func matchesAny(cmdline string, keywords []string) bool {
	if cmdline == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(cmdline, kw) {
			return true
		}
	}
	return false
}
