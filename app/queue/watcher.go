package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/proc"
)

// Watcher runs queued jobs in its own process. New descriptors are picked up on file system
// events, with periodic polling as a fallback. The number of running jobs is limited by Limit,
// read on every dispatch decision.
type Watcher struct {
	Queue        *Queue
	Limit        func() int
	PollInterval time.Duration
	Grace        time.Duration // time between SIGTERM and SIGKILL of a canceled job
	MaxAge       time.Duration // older descriptors are dropped
	Stdout       io.Writer     // optional echo of job output, prefixed by job id

	claims *Claims
	wg     sync.WaitGroup
	once   sync.Once
}

func (w *Watcher) init() {
	w.once.Do(func() {
		w.claims = NewClaims()
		if w.PollInterval <= 0 {
			w.PollInterval = 2 * time.Second
		}
		if w.Grace <= 0 {
			w.Grace = 10 * time.Second
		}
		if w.MaxAge <= 0 {
			w.MaxAge = 24 * time.Hour
		}
		if w.Limit == nil {
			w.Limit = func() int { return 1 }
		}
	})
}

// Run watches the queue till context canceled, then waits for running jobs to finish
func (w *Watcher) Run(ctx context.Context) error {
	w.init()
	log.Printf("[INFO] watching queue %s", w.Queue.Dir())

	var events <-chan fsnotify.Event
	var errs <-chan error
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[WARN] can't make fs watcher, polling only: %v", err)
	} else {
		defer fsw.Close()
		if err := fsw.Add(w.Queue.Dir()); err != nil {
			log.Printf("[WARN] can't watch %s, polling only: %v", w.Queue.Dir(), err)
		} else {
			events, errs = fsw.Events, fsw.Errors
		}
	}

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] queue watcher stopped, waiting for %d running jobs", w.claims.Len())
			w.wg.Wait()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) && strings.HasSuffix(ev.Name, descriptorSuffix) {
				w.scan(ctx)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("[WARN] fs watcher error, %v", err)
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// Running returns number of jobs running now
func (w *Watcher) Running() int {
	w.init()
	return w.claims.Len()
}

// scan claims pending descriptors while below the limit
func (w *Watcher) scan(ctx context.Context) {
	for _, id := range w.Queue.orphanCancels() {
		if !w.claims.Has(id) {
			_ = os.Remove(w.Queue.cancelPath(id))
		}
	}
	if n := w.Queue.dropStaleExits(w.MaxAge); n > 0 {
		log.Printf("[DEBUG] removed %d stale exit files", n)
	}

	for _, d := range w.Queue.Pending() {
		if ctx.Err() != nil {
			return
		}
		if w.claims.Has(d.JobID) {
			continue
		}
		if age := time.Since(d.CreatedAt); age > w.MaxAge {
			log.Printf("[WARN] drop stale job %s, queued %v ago", d.JobID, age.Truncate(time.Second))
			if err := w.Queue.Finish(d.JobID, -1); err != nil {
				log.Printf("[WARN] %v", err)
			}
			continue
		}
		limit := w.Limit()
		if w.claims.Len() >= limit {
			log.Printf("[DEBUG] %d jobs running, limit %d, job %s waits", w.claims.Len(), limit, d.JobID)
			return
		}
		if !w.claims.Add(d.JobID) {
			continue
		}
		w.wg.Add(1)
		go func(d Descriptor) {
			defer w.wg.Done()
			defer w.claims.Remove(d.JobID)
			code := w.execute(ctx, d)
			if err := w.Queue.Finish(d.JobID, code); err != nil {
				log.Printf("[WARN] %v", err)
			}
		}(d)
	}
}

// execute runs the job with combined output written to its log file, returns exit code
func (w *Watcher) execute(ctx context.Context, d Descriptor) int {
	if w.Queue.CancelRequested(d.JobID) {
		log.Printf("[INFO] job %s canceled before start", d.JobID)
		return -1
	}

	logFile, err := os.OpenFile(w.Queue.LogPath(d.JobID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // queue log dir
	if err != nil {
		log.Printf("[ERROR] can't open log of %s, %v", d.JobID, err)
		return -1
	}
	defer logFile.Close()

	var out io.Writer = logFile
	if w.Stdout != nil {
		out = io.MultiWriter(logFile, proc.NewLogPrefixer(w.Stdout, d.JobID))
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go w.watchCancel(jobCtx, d.JobID, cancel)

	cmd := proc.Command(jobCtx, w.Grace, d.Executable, d.Args...)
	cmd.Env = proc.Env(d.Env)
	cmd.Dir = d.WorkDir
	cmd.Stdout = out
	cmd.Stderr = out

	log.Printf("[INFO] start job %s: %s %s", d.JobID, d.Executable, strings.Join(d.Args, " "))
	st := time.Now()
	err = cmd.Run()
	code := exitCode(err)
	if err != nil && code < 0 {
		_, _ = fmt.Fprintf(out, "failed to run %s: %v\n", filepath.Base(d.Executable), err)
	}
	log.Printf("[INFO] finished job %s with code %d in %v", d.JobID, code, time.Since(st).Truncate(time.Millisecond))
	return code
}

func (w *Watcher) watchCancel(ctx context.Context, jobID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Queue.CancelRequested(jobID) {
				log.Printf("[INFO] cancel requested for job %s", jobID)
				cancel()
				return
			}
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return 128 + 15 // killed by signal
	}
	return -1
}
