package proc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Completes(t *testing.T) {
	var out strings.Builder
	cmd := Command(t.Context(), time.Second, "sh", "-c", "echo hello")
	cmd.Stdout = &out
	require.NoError(t, cmd.Run())
	assert.Equal(t, "hello\n", out.String())
}

func TestCommand_TerminatedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := Command(ctx, 200*time.Millisecond, "sh", "-c", "sleep 30")
	require.NoError(t, cmd.Start())

	time.AfterFunc(100*time.Millisecond, cancel)
	st := time.Now()
	err := cmd.Wait()
	require.Error(t, err)
	assert.Less(t, time.Since(st), 5*time.Second)
}

func TestCommand_KilledAfterGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// ignores SIGTERM, has to be killed
	cmd := Command(ctx, 200*time.Millisecond, "sh", "-c", "trap '' TERM; while true; do sleep 0.05; done")
	require.NoError(t, cmd.Start())
	time.Sleep(100 * time.Millisecond)

	st := time.Now()
	cancel()
	err := cmd.Wait()
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(st), 150*time.Millisecond)
	assert.Less(t, time.Since(st), 5*time.Second)
}

func TestTree(t *testing.T) {
	cmd := Command(t.Context(), time.Second, "sh", "-c", "sleep 5 & sleep 5 & wait")
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill(); _ = cmd.Wait() }()

	require.Eventually(t, func() bool {
		return len(Tree(int32(cmd.Process.Pid))) >= 3 //nolint:gosec // test pid
	}, 2*time.Second, 20*time.Millisecond)

	assert.Empty(t, Tree(1<<30), "unknown pid")
}
