package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/proc"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/queue"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

// errLogLines is how many output lines are attached to the error of a failed job
const errLogLines = 5

// runLocal executes crawler as a child process of this service
func (s *Scheduler) runLocal(ctx context.Context, v registry.View, cat *config.Catalog) {
	if ctx.Err() != nil {
		s.complete(ctx, v, cat, nil) // stopped while waiting for a pool slot
		return
	}
	if s.Gate != nil && !cat.Admission.Empty() {
		if !s.Gate.Wait(ctx, cat.Admission, v.ID) {
			if ctx.Err() != nil {
				s.complete(ctx, v, cat, nil)
				return
			}
			s.finish(v.ID, enums.JobStatusFailed, "admission conditions not met")
			return
		}
	}

	cmdLine, err := cat.Command(v.Store, v.Category)
	if err != nil {
		s.finish(v.ID, enums.JobStatusFailed, err.Error())
		return
	}
	outDir := cat.OutputDir(v.Store, v.Category)
	if err = os.MkdirAll(outDir, 0o750); err != nil {
		s.finish(v.ID, enums.JobStatusFailed, fmt.Sprintf("can't make output dir %s: %v", outDir, err))
		return
	}

	lw := proc.NewLineWriter(func(line string) { s.Registry.ApplyLine(v.ID, line) })
	var out io.Writer = lw
	if s.Stdout != nil {
		out = io.MultiWriter(lw, proc.NewLogPrefixer(s.Stdout, v.ID))
	}
	cmd := proc.Command(ctx, s.StopGrace, cmdLine[0], cmdLine[1:]...) //nolint:gosec // commands come from the catalog
	cmd.Env = proc.Env(s.jobEnv(cat, v))
	cmd.Stdout, cmd.Stderr = out, out

	log.Printf("[DEBUG] job %s runs %q", v.ID, strings.Join(cmdLine, " "))
	err = cmd.Run()
	lw.Flush()
	s.complete(ctx, v, cat, err)
}

// runQueued dispatches crawler to the queue watcher and follows its log
func (s *Scheduler) runQueued(ctx context.Context, v registry.View, cat *config.Catalog) {
	if !s.acquireSlot(ctx, v.ID) {
		s.complete(ctx, v, cat, nil)
		return
	}
	defer s.releaseSlot()

	cmdLine, err := cat.Command(v.Store, v.Category)
	if err != nil {
		s.finish(v.ID, enums.JobStatusFailed, err.Error())
		return
	}
	if err = os.MkdirAll(cat.OutputDir(v.Store, v.Category), 0o750); err != nil {
		s.finish(v.ID, enums.JobStatusFailed, fmt.Sprintf("can't make output dir: %v", err))
		return
	}
	d := queue.Descriptor{JobID: v.ID, Executable: cmdLine[0], Args: cmdLine[1:], Env: s.jobEnv(cat, v)}
	if err = s.Transport.Dispatch(ctx, d); err != nil {
		s.finish(v.ID, enums.JobStatusFailed, fmt.Sprintf("can't dispatch: %v", err))
		return
	}

	code, err := s.Transport.Follow(ctx, v.ID, func(line string) {
		s.Registry.ApplyLine(v.ID, line)
		if s.Stdout != nil {
			_, _ = proc.NewLogPrefixer(s.Stdout, v.ID).Write([]byte(line + "\n"))
		}
	})
	var runErr error
	switch {
	case errors.Is(err, queue.ErrNoExitCode):
		log.Printf("[WARN] job %s finished without exit code, checking output", v.ID)
	case err != nil:
		runErr = err
	case code != 0:
		runErr = errors.New("exit status " + strconv.Itoa(code))
	}
	s.complete(ctx, v, cat, runErr)
}

// complete decides the terminal status of the job once its process is gone.
// Successful runs are parsed, uploaded if configured and recorded as results.
func (s *Scheduler) complete(ctx context.Context, v registry.View, cat *config.Catalog, runErr error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.finish(v.ID, enums.JobStatusFailed, fmt.Sprintf("timed out after %v", s.JobTimeout))
			return
		}
		s.finish(v.ID, enums.JobStatusStopped, "")
		return
	}
	if runErr != nil {
		msg := runErr.Error()
		if tail := s.Registry.LogTail(v.ID, errLogLines); tail != "" {
			msg += ": " + tail
		}
		s.finish(v.ID, enums.JobStatusFailed, msg)
		return
	}

	s.Registry.MarkRunning(v.ID)
	file, err := s.locateOutput(v, cat)
	if err != nil {
		s.finish(v.ID, enums.JobStatusFailed, err.Error())
		return
	}
	items, err := readItems(file)
	if err != nil {
		s.finish(v.ID, enums.JobStatusFailed, fmt.Sprintf("invalid output %s: %v", file, err))
		return
	}
	s.Registry.SetOutput(v.ID, file, len(items))

	entry := store.ResultEntry{ID: v.ID, Store: v.Store, Category: v.Category, Items: items,
		ItemCount: len(items), OutputFile: file, CompletedAt: time.Now()}
	if fi, err := os.Stat(file); err == nil {
		entry.FileSize, entry.FileModifiedAt = fi.Size(), fi.ModTime()
	}

	if s.Uploader != nil {
		if !s.Registry.Transition(v.ID, enums.JobStatusUploading, "") {
			return // stopped meanwhile
		}
		meta := map[string]string{"job_id": v.ID, "store": v.Store, "category": v.Category,
			"item_count": strconv.Itoa(len(items))}
		up, err := s.Uploader.Upload(ctx, v.Store, v.Category, file, meta)
		switch {
		case err != nil:
			log.Printf("[WARN] job %s result kept local, %v", v.ID, err)
		default:
			entry.RemoteURL, entry.RemotePath = up.URL, up.Path
			if up.LocalRemoved {
				entry.OutputFile = ""
			}
		}
		if ctx.Err() != nil {
			s.finish(v.ID, enums.JobStatusStopped, "")
			return
		}
	}

	if !s.Registry.Settle(v.ID, enums.JobStatusCompleted, "", func() { s.Results.Record(entry) }) {
		log.Printf("[INFO] job %s stopped before completion, result not recorded", v.ID)
		return
	}
	s.announce(v.ID, enums.JobStatusCompleted, "")
}

// locateOutput returns the result file of the job, either reported by the crawler or picked from
// json files written to the output dir since the job started. Files named after the job id win,
// files taken by overlapping jobs of the same store and category or named after them are skipped.
// The picked file is set as the job output right away, so concurrent siblings never take it.
func (s *Scheduler) locateOutput(v registry.View, cat *config.Catalog) (string, error) {
	s.outputMu.Lock()
	defer s.outputMu.Unlock()

	if hint := s.Registry.OutputHint(v.ID); hint != "" {
		candidates := []string{hint, filepath.Join(cat.OutputDir(v.Store, v.Category), filepath.Base(hint))}
		for _, c := range candidates {
			if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
				return c, nil
			}
		}
		log.Printf("[DEBUG] job %s reported output %s, but it is missing", v.ID, hint)
	}

	taken := map[string]bool{}
	siblings := []string{}
	for id, o := range s.Registry.All() {
		if id == v.ID || o.Store != v.Store || o.Category != v.Category {
			continue
		}
		siblings = append(siblings, id)
		overlaps := !o.Status.IsTerminal() || o.FinishedAt.After(v.StartedAt)
		if overlaps && o.OutputFile != "" {
			taken[filepath.Base(o.OutputFile)] = true
		}
	}

	dir := cat.OutputDir(v.Store, v.Category)
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("can't list %s: %w", dir, err)
	}
	since := v.StartedAt.Truncate(time.Second)
	var res string
	var newest time.Time
	var own bool
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil || fi.IsDir() || fi.ModTime().Before(since) || taken[filepath.Base(f)] {
			continue
		}
		if slices.ContainsFunc(siblings, func(id string) bool { return namedFor(f, id) }) {
			continue
		}
		mine := namedFor(f, v.ID)
		if own && !mine {
			continue
		}
		if res == "" || mine && !own || fi.ModTime().After(newest) {
			res, newest, own = f, fi.ModTime(), mine
		}
	}
	if res == "" {
		return "", fmt.Errorf("no output file found in %s", dir)
	}
	s.Registry.SetOutput(v.ID, res, 0)
	return res, nil
}

// namedFor checks if the file name carries the job id. Ids of the same second differ by a numeric
// suffix, so the id followed by a digit or by "_" and a digit belongs to another job.
func namedFor(file, id string) bool {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	i := strings.Index(stem, id)
	if i < 0 {
		return false
	}
	rest := stem[i+len(id):]
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	switch {
	case rest == "":
		return true
	case isDigit(rest[0]):
		return false
	case rest[0] == '_' && len(rest) > 1 && isDigit(rest[1]):
		return false
	}
	return true
}

// readItems loads product records from a result file, it has to be a json array
func readItems(file string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(file) //nolint:gosec // file located in the job output dir
	if err != nil {
		return nil, fmt.Errorf("can't read: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("not a json array: %w", err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}
