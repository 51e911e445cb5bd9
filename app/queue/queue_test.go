package queue

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/proc"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(filepath.Join(t.TempDir(), "queue"), "")
	require.NoError(t, err)
	return q
}

func TestQueue_PutPendingFinish(t *testing.T) {
	q := newTestQueue(t)
	now := time.Now()
	require.NoError(t, q.Put(Descriptor{JobID: "b", Executable: "echo", CreatedAt: now}))
	require.NoError(t, q.Put(Descriptor{JobID: "a", Executable: "echo", Args: []string{"x"}, CreatedAt: now.Add(-time.Second)}))
	require.Error(t, q.Put(Descriptor{JobID: "c"}))

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].JobID, "oldest first")
	assert.Equal(t, []string{"x"}, pending[0].Args)
	assert.True(t, q.Exists("a"))

	tmps, err := filepath.Glob(filepath.Join(q.Dir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)

	require.NoError(t, q.Finish("a", 3))
	assert.False(t, q.Exists("a"))
	code, err := q.ExitCode("a")
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	_, err = q.ExitCode("a")
	require.ErrorIs(t, err, ErrNoExitCode, "exit code consumed")

	require.NoError(t, os.WriteFile(filepath.Join(q.Dir(), "bad.job.json"), []byte("{"), 0o600))
	assert.Len(t, q.Pending(), 1)
}

func TestQueue_CancelMarkers(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.Put(Descriptor{JobID: "a", Executable: "echo"}))
	require.NoError(t, q.RequestCancel("a"))
	require.NoError(t, q.RequestCancel("orphan"))
	assert.True(t, q.CancelRequested("a"))
	assert.Equal(t, []string{"orphan"}, q.orphanCancels())
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	assert.True(t, c.Add("a"))
	assert.False(t, c.Add("a"))
	assert.True(t, c.Add("b"))
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("a"))
	c.Remove("a")
	c.Remove("a")
	assert.False(t, c.Has("a"))
	assert.Equal(t, 1, c.Len())
}

func TestFileTransport_FollowAppendedLog(t *testing.T) {
	q := newTestQueue(t)
	tr := &FileTransport{Queue: q, LogWait: time.Second, TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "j1", Executable: "sh"}))

	go func() {
		time.Sleep(30 * time.Millisecond)
		fh, err := os.Create(q.LogPath("j1"))
		if err != nil {
			return
		}
		_, _ = fh.WriteString("first\nsec")
		time.Sleep(30 * time.Millisecond)
		_, _ = fh.WriteString("ond\nbad \xff\nlast")
		_ = fh.Close()
		_ = q.Finish("j1", 0)
	}()

	var mu sync.Mutex
	lines := []string{}
	code, err := tr.Follow(context.Background(), "j1", func(l string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, l)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"first", "second", "bad �", "last"}, lines)
}

func TestFileTransport_FollowDegradedWithoutLog(t *testing.T) {
	q := newTestQueue(t)
	tr := &FileTransport{Queue: q, LogWait: 50 * time.Millisecond, TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "j2", Executable: "sh"}))
	time.AfterFunc(200*time.Millisecond, func() { _ = q.Finish("j2", 2) })

	lines := 0
	code, err := tr.Follow(context.Background(), "j2", func(string) { lines++ })
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, 0, lines)
}

func TestFileTransport_FollowCanceled(t *testing.T) {
	q := newTestQueue(t)
	tr := &FileTransport{Queue: q, LogWait: time.Second, TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "j3", Executable: "sh"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tr.Follow(ctx, "j3", func(string) {})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tr.Cancel("j3"))
	assert.False(t, q.Exists("j3"), "pending dispatch removed")
	assert.True(t, q.CancelRequested("j3"))
}

func TestQueue_FinishAfterCancel(t *testing.T) {
	q := newTestQueue(t)
	tr := NewFileTransport(q)
	require.NoError(t, q.Put(Descriptor{JobID: "gone", Executable: "sh"}))
	require.NoError(t, tr.Cancel("gone"))

	require.NoError(t, q.Finish("gone", 143))
	assert.NoFileExists(t, filepath.Join(q.Dir(), "gone.exit"), "no exit file for removed job")
	assert.False(t, q.CancelRequested("gone"))
	_, err := q.ExitCode("gone")
	require.ErrorIs(t, err, ErrNoExitCode)
}

func TestQueue_DropStaleExits(t *testing.T) {
	q := newTestQueue(t)
	old, fresh := filepath.Join(q.Dir(), "old.exit"), filepath.Join(q.Dir(), "fresh.exit")
	require.NoError(t, os.WriteFile(old, []byte("0"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("0"), 0o600))
	ts := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, ts, ts))

	assert.Equal(t, 1, q.dropStaleExits(time.Hour))
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestFileTransport_FollowNotClaimed(t *testing.T) {
	q := newTestQueue(t)
	tr := &FileTransport{Queue: q, LogWait: 20 * time.Millisecond, ClaimTimeout: 100 * time.Millisecond,
		TailInterval: 10 * time.Millisecond}
	require.NoError(t, tr.Dispatch(context.Background(), Descriptor{JobID: "j4", Executable: "sh"}))

	st := time.Now()
	_, err := tr.Follow(context.Background(), "j4", func(string) {})
	require.ErrorIs(t, err, ErrNotClaimed)
	assert.Less(t, time.Since(st), 2*time.Second)
	assert.False(t, q.Exists("j4"), "unclaimed descriptor removed")
	assert.True(t, q.CancelRequested("j4"), "late watcher won't run it")
}

func TestLogTail_LongLineSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.log")
	body := strings.Repeat("y", proc.MaxLineLen+10) + "\nshort\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	fh, err := os.Open(path) //nolint:gosec // test file
	require.NoError(t, err)
	tail := &logTail{fh: fh}
	defer tail.close()

	lines := []string{}
	tail.read(func(l string) { lines = append(lines, l) })
	require.Len(t, lines, 3)
	assert.Len(t, lines[0], proc.MaxLineLen)
	assert.Equal(t, strings.Repeat("y", 10), lines[1])
	assert.Equal(t, "short", lines[2])
}
