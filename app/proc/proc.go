// Package proc runs crawler processes which are stopped gracefully on context cancellation:
// the whole process tree gets SIGTERM first and is killed if still alive after the grace period.
package proc

import (
	"context"
	"os/exec"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/process"
)

// Command makes exec.Cmd bound to ctx with graceful termination of the process tree
func Command(ctx context.Context, grace time.Duration, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // command comes from the catalog file
	cmd.Cancel = func() error {
		tree := Tree(int32(cmd.Process.Pid)) //nolint:gosec // pid fits int32
		for _, p := range tree {
			if err := p.Terminate(); err != nil {
				log.Printf("[DEBUG] can't terminate pid %d: %v", p.Pid, err)
			}
		}
		time.AfterFunc(grace, func() { kill(tree) })
		return nil
	}
	cmd.WaitDelay = grace
	return cmd
}

// Tree returns the process with all its descendants, parent first. Missing processes skipped.
func Tree(pid int32) []*process.Process {
	root, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}
	res := []*process.Process{root}
	for i := 0; i < len(res); i++ {
		children, err := res[i].Children()
		if err != nil {
			continue // no children or process gone
		}
		res = append(res, children...)
	}
	return res
}

func kill(tree []*process.Process) {
	for _, p := range tree {
		running, err := p.IsRunning()
		if err != nil || !running {
			continue
		}
		log.Printf("[WARN] pid %d still running after grace period, killing", p.Pid)
		if err := p.Kill(); err != nil {
			log.Printf("[DEBUG] can't kill pid %d: %v", p.Pid, err)
		}
	}
}
