package boot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// PIDFile is a marker file holding a process identifier. Services write one
// on startup so a later boot can detect and clear leftover instances.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// NewPIDFile creates a handle for the marker file at path. Nothing touches
// the filesystem until Write or Remove.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the marker file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process ID. The sidecar lock guards against two
// instances of the same service writing concurrently.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o750); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	locked, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", p.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%s: already locked by another instance", p.lock.Path())
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(p.path, []byte(pid+"\n"), 0o640); err != nil {
		_ = p.lock.Unlock()
		return fmt.Errorf("write pid file %s: %w", p.path, err)
	}
	return nil
}

// Read returns the recorded process ID, or 0 if the file does not exist.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read pid file %s: %w", p.path, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", p.path, err)
	}
	return pid, nil
}

// Remove deletes the marker file and its lock. Idempotent: a missing file is
// not an error.
func (p *PIDFile) Remove() error {
	_ = p.lock.Unlock()

	for _, path := range []string{p.path, p.lock.Path()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}
