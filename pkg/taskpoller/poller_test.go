package taskpoller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher returns the queued statuses per task, repeating the last one.
type scriptedFetcher struct {
	mu      sync.Mutex
	scripts map[string][]string
	fail    map[string]bool
}

func (f *scriptedFetcher) FetchTaskStatus(ctx context.Context, taskID string) (dispatch.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[taskID] {
		return dispatch.TaskStatus{}, errors.New("backend down")
	}
	script := f.scripts[taskID]
	status := script[0]
	if len(script) > 1 {
		f.scripts[taskID] = script[1:]
	}
	return dispatch.TaskStatus{ID: taskID, Status: status}, nil
}

type terminalRecorder struct {
	mu   sync.Mutex
	seen []dispatch.TaskStatus
}

func (r *terminalRecorder) handle(ctx context.Context, status dispatch.TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, status)
}

func (r *terminalRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func newLogger(t *testing.T) logger.ILogger {
	return logger.NewFileLogger(filepath.Join(t.TempDir(), "app.log"))
}

func TestPoller_StopsWhenNoTasksRemain(t *testing.T) {
	fetcher := &scriptedFetcher{scripts: map[string][]string{
		"a": {dispatch.TaskPending, dispatch.TaskProcessing, dispatch.TaskCompleted},
		"b": {dispatch.TaskFailed},
	}}
	rec := &terminalRecorder{}
	p := New(fetcher, 5*time.Millisecond, rec.handle, newLogger(t))
	defer p.Stop()

	assert.False(t, p.Running())
	p.Track("a")
	p.Track("b")
	p.Track("a")
	assert.True(t, p.Running())

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Active())

	// Tracking again restarts the loop.
	fetcher.mu.Lock()
	fetcher.scripts["c"] = []string{dispatch.TaskCancelled}
	fetcher.mu.Unlock()
	p.Track("c")
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestPoller_UntrackSkipsCallback(t *testing.T) {
	fetcher := &scriptedFetcher{scripts: map[string][]string{"a": {dispatch.TaskPending}}}
	rec := &terminalRecorder{}
	p := New(fetcher, 5*time.Millisecond, rec.handle, newLogger(t))
	defer p.Stop()

	p.Track("a")
	p.Untrack("a")

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestPoller_GivesUpAfterRepeatedFailures(t *testing.T) {
	fetcher := &scriptedFetcher{scripts: map[string][]string{}, fail: map[string]bool{"a": true}}
	rec := &terminalRecorder{}
	p := New(fetcher, time.Millisecond, rec.handle, newLogger(t))
	p.maxFailures = 3
	defer p.Stop()

	p.Track("a")

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestPoller_StopIgnoresLaterTracks(t *testing.T) {
	fetcher := &scriptedFetcher{scripts: map[string][]string{"a": {dispatch.TaskPending}}}
	p := New(fetcher, 5*time.Millisecond, func(context.Context, dispatch.TaskStatus) {}, newLogger(t))

	p.Track("a")
	p.Stop()
	assert.False(t, p.Running())

	p.Track("b")
	assert.False(t, p.Running())
}
