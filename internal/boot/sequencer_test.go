package boot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/paper"
)

type fakeSweeper struct {
	terminated int
	err        error
	keywords   []string
}

func (f *fakeSweeper) TerminateByKeywords(_ context.Context, keywords []string) (int, error) {
	f.keywords = keywords
	return f.terminated, f.err
}

type fakeMarker struct {
	path    string
	err     error
	removed bool
}

func (f *fakeMarker) Path() string { return f.path }
func (f *fakeMarker) Remove() error {
	f.removed = true
	return f.err
}

type fakeStore struct {
	err    error
	inited bool
}

func (f *fakeStore) InitStore(context.Context) error {
	f.inited = true
	return f.err
}

type fakeProvisioner struct {
	err    error
	called bool
}

func (f *fakeProvisioner) EnsureAdmin(context.Context) error {
	f.called = true
	return f.err
}

type fakeLauncher struct {
	webErr       error
	schedErr     error
	webStarted   bool
	schedStarted bool
}

func (f *fakeLauncher) StartWebServer() (int, error) {
	if f.webErr != nil {
		return 0, f.webErr
	}
	f.webStarted = true
	return 4242, nil
}

func (f *fakeLauncher) RunScheduler(context.Context) error {
	f.schedStarted = true
	return f.schedErr
}

type fixture struct {
	sweeper     *fakeSweeper
	markers     []*fakeMarker
	store       *fakeStore
	provisioner *fakeProvisioner
	launcher    *fakeLauncher
}

func newFixture() *fixture {
	return &fixture{
		sweeper:     &fakeSweeper{},
		markers:     []*fakeMarker{{path: "/run/web.pid"}, {path: "/run/sched.pid"}},
		store:       &fakeStore{},
		provisioner: &fakeProvisioner{},
		launcher:    &fakeLauncher{},
	}
}

func (f *fixture) sequencer() *Sequencer {
	markers := make([]Marker, len(f.markers))
	for i, m := range f.markers {
		markers[i] = m
	}
	return NewSequencer(Config{
		Keywords:    []string{"paperdex serve", "paperdex scheduler"},
		Markers:     markers,
		Sweeper:     f.sweeper,
		Store:       f.store,
		Provisioner: f.provisioner,
		Launcher:    f.launcher,
	}, log.NewNop())
}

func statusOf(t *testing.T, results []StepResult, name string) StepStatus {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r.Status
		}
	}
	t.Fatalf("no result for step %q", name)
	return ""
}

func TestSequencer_CleanState(t *testing.T) {
	f := newFixture()

	results, err := f.sequencer().Run(context.Background())
	require.NoError(t, err)

	// Nothing to terminate and nothing to delete is the happy path, not a
	// failure.
	assert.Equal(t, StepSkipped, statusOf(t, results, "terminate stale processes"))
	assert.Equal(t, StepOK, statusOf(t, results, "remove marker files"))
	assert.Equal(t, StepOK, statusOf(t, results, "initialize store"))
	assert.Equal(t, StepOK, statusOf(t, results, "provision admin"))
	assert.Equal(t, StepOK, statusOf(t, results, "launch services"))

	assert.True(t, f.store.inited)
	assert.True(t, f.launcher.webStarted)
	assert.True(t, f.launcher.schedStarted)
	for _, m := range f.markers {
		assert.True(t, m.removed)
	}
}

func TestSequencer_StaleProcessesTerminated(t *testing.T) {
	f := newFixture()
	f.sweeper.terminated = 2

	results, err := f.sequencer().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepOK, statusOf(t, results, "terminate stale processes"))
	assert.Equal(t, []string{"paperdex serve", "paperdex scheduler"}, f.sweeper.keywords)
}

func TestSequencer_ProcessScanFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.sweeper.err = errors.New("proc unreadable")

	results, err := f.sequencer().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSkipped, statusOf(t, results, "terminate stale processes"))
	assert.True(t, f.launcher.schedStarted)
}

func TestSequencer_DuplicateAdminAbsorbed(t *testing.T) {
	f := newFixture()
	f.provisioner.err = fmt.Errorf("%w: admin", paper.ErrDuplicateUser)

	results, err := f.sequencer().Run(context.Background())
	require.NoError(t, err)

	// Second boot in a row: the duplicate account must not abort the run.
	assert.Equal(t, StepSkipped, statusOf(t, results, "provision admin"))
	assert.True(t, f.launcher.webStarted)
	assert.True(t, f.launcher.schedStarted)
}

func TestSequencer_AdminFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.provisioner.err = errors.New("connection refused")

	results, err := f.sequencer().Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepFailed, statusOf(t, results, "provision admin"))
	assert.False(t, f.launcher.webStarted)
}

func TestSequencer_StoreInitFailureAbortsBeforeLaunch(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("database unreachable")

	results, err := f.sequencer().Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, StepFailed, statusOf(t, results, "initialize store"))
	assert.False(t, f.provisioner.called)
	assert.False(t, f.launcher.webStarted)
	assert.False(t, f.launcher.schedStarted)
}

func TestSequencer_MarkerRemoveFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.markers[0].err = errors.New("permission denied")

	results, err := f.sequencer().Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepFailed, statusOf(t, results, "remove marker files"))
	assert.False(t, f.store.inited)
}

func TestSequencer_WebServerLaunchFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.launcher.webErr = errors.New("exec format error")

	results, err := f.sequencer().Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepFailed, statusOf(t, results, "launch services"))
	assert.False(t, f.launcher.schedStarted)
}

func TestSequencer_SchedulerExitPropagates(t *testing.T) {
	f := newFixture()
	f.launcher.schedErr = errors.New("exit status 1")

	_, err := f.sequencer().Run(context.Background())
	assert.Error(t, err)
}

func TestSequencer_PauseCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	markers := make([]Marker, len(f.markers))
	for i, m := range f.markers {
		markers[i] = m
	}
	seq := NewSequencer(Config{
		Markers:     markers,
		Pause:       time.Hour,
		Sweeper:     f.sweeper,
		Store:       f.store,
		Provisioner: f.provisioner,
		Launcher:    f.launcher,
	}, log.NewNop())

	_, err := seq.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.store.inited)
}
