package queue

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startWatcher(t *testing.T, w *Watcher) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return func() {
		cancelCtx()
		<-done
	}
}

func TestWatcher_RunsJobWithEnvAndLog(t *testing.T) {
	q := newTestQueue(t)
	out := &syncBuffer{}
	w := &Watcher{Queue: q, Limit: func() int { return 2 }, PollInterval: 20 * time.Millisecond, Stdout: out}
	stop := startWatcher(t, w)
	defer stop()

	tr := &FileTransport{Queue: q, LogWait: 5 * time.Second, TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "env1", Executable: "sh",
		Args: []string{"-c", `echo "items=$MAX_ITEMS"; echo oops >&2; exit 3`}, Env: map[string]string{"MAX_ITEMS": "10"}}))

	var mu sync.Mutex
	lines := []string{}
	code, err := tr.Follow(context.Background(), "env1", func(l string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, l)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"items=10", "oops"}, lines)
	assert.Contains(t, out.String(), "{env1} items=10")
	assert.False(t, q.Exists("env1"))
}

func TestWatcher_LimitReadOnEveryDecision(t *testing.T) {
	q := newTestQueue(t)
	var limit atomic.Int32
	limit.Store(1)
	w := &Watcher{Queue: q, Limit: func() int { return int(limit.Load()) }, PollInterval: 20 * time.Millisecond}

	marker := t.TempDir()
	for _, id := range []string{"a", "b", "c"} {
		script := "touch " + filepath.Join(marker, id) + "; sleep 0.3"
		require.NoError(t, q.Put(Descriptor{JobID: id, Executable: "sh", Args: []string{"-c", script}}))
	}
	stop := startWatcher(t, w)
	defer stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, w.Running(), "limit 1 respected")

	limit.Store(3)
	require.Eventually(t, func() bool {
		started, _ := filepath.Glob(filepath.Join(marker, "*"))
		return len(started) == 3
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(q.Pending()) == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_CancelRunningJob(t *testing.T) {
	q := newTestQueue(t)
	w := &Watcher{Queue: q, Limit: func() int { return 1 }, PollInterval: 20 * time.Millisecond, Grace: 200 * time.Millisecond}
	stop := startWatcher(t, w)
	defer stop()

	tr := &FileTransport{Queue: q, LogWait: time.Second, TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "long", Executable: "sh",
		Args: []string{"-c", "echo started; sleep 30"}}))
	require.Eventually(t, func() bool { return w.Running() == 1 }, 2*time.Second, 10*time.Millisecond)

	st := time.Now()
	require.NoError(t, tr.Cancel("long"))
	require.Eventually(t, func() bool { return w.Running() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Less(t, time.Since(st), 5*time.Second)

	data, err := os.ReadFile(q.LogPath("long"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
	assert.False(t, q.CancelRequested("long"), "marker cleaned")
}

func TestWatcher_CanceledBeforeStartAndStale(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.Put(Descriptor{JobID: "stale", Executable: "sh", Args: []string{"-c", "exit 0"},
		CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, q.Put(Descriptor{JobID: "canceled", Executable: "sh", Args: []string{"-c", "exit 0"}}))
	require.NoError(t, q.RequestCancel("canceled"))

	w := &Watcher{Queue: q, Limit: func() int { return 5 }, PollInterval: 20 * time.Millisecond}
	stop := startWatcher(t, w)
	defer stop()

	require.Eventually(t, func() bool { return len(q.Pending()) == 0 }, 2*time.Second, 10*time.Millisecond)
	code, err := q.ExitCode("stale")
	require.NoError(t, err)
	assert.Equal(t, -1, code)
	code, err = q.ExitCode("canceled")
	require.NoError(t, err)
	assert.Equal(t, -1, code)
}

func TestWatcher_BadExecutable(t *testing.T) {
	q := newTestQueue(t)
	w := &Watcher{Queue: q, Limit: func() int { return 1 }, PollInterval: 20 * time.Millisecond}
	stop := startWatcher(t, w)
	defer stop()

	require.NoError(t, q.Put(Descriptor{JobID: "bad", Executable: "/no/such/binary"}))
	require.Eventually(t, func() bool { return !q.Exists("bad") }, 2*time.Second, 10*time.Millisecond)
	code, err := q.ExitCode("bad")
	require.NoError(t, err)
	assert.Equal(t, -1, code)
	data, err := os.ReadFile(q.LogPath("bad"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "failed to run binary"))
}
