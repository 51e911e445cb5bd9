// Package queue implements cross-process job dispatch through a shared directory. The scheduler writes
// job descriptors, a watcher process claims and runs them, writing combined output to a log file.
// Removal of the descriptor signals completion, the exit code is left in a separate file.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

const (
	descriptorSuffix = ".job.json"
	exitSuffix       = ".exit"
	cancelSuffix     = ".cancel"
	logSuffix        = ".log"
)

// ErrNoExitCode returned when a job finished without recorded exit code, i.e. it was canceled before start
var ErrNoExitCode = errors.New("no exit code recorded")

// Descriptor is a job queued for the watcher
type Descriptor struct {
	JobID      string            `json:"job_id"`
	Executable string            `json:"executable"`
	Args       []string          `json:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	WorkDir    string            `json:"work_dir,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Queue is a directory of job descriptors and a directory of job logs
type Queue struct {
	dir    string
	logDir string
}

// New makes Queue, creates directories if missing. Empty logDir means {dir}/logs.
func New(dir, logDir string) (*Queue, error) {
	if logDir == "" {
		logDir = filepath.Join(dir, "logs")
	}
	for _, d := range []string{dir, logDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, fmt.Errorf("can't make queue directory %s: %w", d, err)
		}
	}
	return &Queue{dir: dir, logDir: logDir}, nil
}

// Dir returns descriptors directory
func (q *Queue) Dir() string { return q.dir }

// LogPath returns path of job log file
func (q *Queue) LogPath(jobID string) string { return filepath.Join(q.logDir, jobID+logSuffix) }

func (q *Queue) descriptorPath(jobID string) string {
	return filepath.Join(q.dir, jobID+descriptorSuffix)
}
func (q *Queue) exitPath(jobID string) string   { return filepath.Join(q.dir, jobID+exitSuffix) }
func (q *Queue) cancelPath(jobID string) string { return filepath.Join(q.dir, jobID+cancelSuffix) }

// Put writes descriptor atomically, the watcher never sees a partial file
func (q *Queue) Put(d Descriptor) error {
	if d.JobID == "" || d.Executable == "" {
		return errors.New("job id and executable are required")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("can't marshal descriptor of %s: %w", d.JobID, err)
	}
	// stale exit status and log of a previous run with the same id must not leak into this one
	_ = os.Remove(q.exitPath(d.JobID))
	_ = os.Remove(q.LogPath(d.JobID))

	tmp, err := os.CreateTemp(q.dir, "."+d.JobID+".*.tmp")
	if err != nil {
		return fmt.Errorf("can't create descriptor of %s: %w", d.JobID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("can't write descriptor of %s: %w", d.JobID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("can't close descriptor of %s: %w", d.JobID, err)
	}
	if err := os.Rename(tmp.Name(), q.descriptorPath(d.JobID)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("can't store descriptor of %s: %w", d.JobID, err)
	}
	return nil
}

// Pending returns queued descriptors, oldest first. Unreadable descriptors are skipped.
func (q *Queue) Pending() []Descriptor {
	files, err := filepath.Glob(filepath.Join(q.dir, "*"+descriptorSuffix))
	if err != nil {
		log.Printf("[WARN] can't list queue %s, %v", q.dir, err)
		return nil
	}
	res := make([]Descriptor, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // file from queue directory
		if err != nil {
			log.Printf("[DEBUG] can't read descriptor %s, %v", f, err)
			continue
		}
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			log.Printf("[WARN] bad descriptor %s, %v", f, err)
			continue
		}
		if d.JobID == "" {
			d.JobID = strings.TrimSuffix(filepath.Base(f), descriptorSuffix)
		}
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

// Exists reports whether the job descriptor is still in the queue
func (q *Queue) Exists(jobID string) bool {
	_, err := os.Stat(q.descriptorPath(jobID))
	return err == nil
}

// Finish records exit code and removes the descriptor, signaling completion.
// The exit code of a job canceled meanwhile is not recorded, nobody follows it anymore.
func (q *Queue) Finish(jobID string, code int) error {
	if !q.Exists(jobID) {
		_ = os.Remove(q.cancelPath(jobID))
		log.Printf("[DEBUG] job %s removed from queue, exit code %d dropped", jobID, code)
		return nil
	}
	if err := os.WriteFile(q.exitPath(jobID), []byte(strconv.Itoa(code)), 0o600); err != nil {
		log.Printf("[WARN] can't write exit code of %s, %v", jobID, err)
	}
	_ = os.Remove(q.cancelPath(jobID))
	if err := os.Remove(q.descriptorPath(jobID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("can't remove descriptor of %s: %w", jobID, err)
	}
	return nil
}

// ExitCode reads and removes recorded exit code of the finished job
func (q *Queue) ExitCode(jobID string) (int, error) {
	data, err := os.ReadFile(q.exitPath(jobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return -1, ErrNoExitCode
		}
		return -1, fmt.Errorf("can't read exit code of %s: %w", jobID, err)
	}
	_ = os.Remove(q.exitPath(jobID))
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, fmt.Errorf("bad exit code of %s: %w", jobID, err)
	}
	return code, nil
}

// remove deletes the descriptor, false if it is gone already
func (q *Queue) remove(jobID string) bool {
	return os.Remove(q.descriptorPath(jobID)) == nil
}

// RequestCancel leaves a marker asking the watcher to stop the running job
func (q *Queue) RequestCancel(jobID string) error {
	if err := os.WriteFile(q.cancelPath(jobID), nil, 0o600); err != nil {
		return fmt.Errorf("can't write cancel marker of %s: %w", jobID, err)
	}
	return nil
}

// CancelRequested reports whether cancel marker exists for the job
func (q *Queue) CancelRequested(jobID string) bool {
	_, err := os.Stat(q.cancelPath(jobID))
	return err == nil
}

// dropStaleExits removes exit files older than maxAge, left by jobs nobody followed to the end
func (q *Queue) dropStaleExits(maxAge time.Duration) int {
	files, err := filepath.Glob(filepath.Join(q.dir, "*"+exitSuffix))
	if err != nil {
		return 0
	}
	res := 0
	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil || time.Since(fi.ModTime()) < maxAge {
			continue
		}
		if os.Remove(f) == nil {
			res++
		}
	}
	return res
}

// orphanCancels returns job ids of cancel markers without descriptors
func (q *Queue) orphanCancels() []string {
	files, err := filepath.Glob(filepath.Join(q.dir, "*"+cancelSuffix))
	if err != nil {
		return nil
	}
	res := []string{}
	for _, f := range files {
		id := strings.TrimSuffix(filepath.Base(f), cancelSuffix)
		if !q.Exists(id) {
			res = append(res, id)
		}
	}
	return res
}
