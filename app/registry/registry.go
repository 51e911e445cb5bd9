// Package registry keeps the in-memory state of crawl jobs and enforces their lifecycle.
// Transitions are guarded, a job that reached a terminal state never changes its status again.
package registry

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/progress"
)

// DefaultReapGrace is how long stopped and failed jobs stay visible after they finished
const DefaultReapGrace = 10 * time.Minute

var transitions = map[enums.JobStatus][]enums.JobStatus{
	enums.JobStatusStarting:  {enums.JobStatusRunning, enums.JobStatusFailed, enums.JobStatusStopped},
	enums.JobStatusRunning:   {enums.JobStatusUploading, enums.JobStatusCompleted, enums.JobStatusFailed, enums.JobStatusStopped},
	enums.JobStatusUploading: {enums.JobStatusCompleted, enums.JobStatusFailed, enums.JobStatusStopped},
}

// View is a copy of job state returned to callers
type View struct {
	ID         string          `json:"id"`
	Store      string          `json:"store"`
	Category   string          `json:"category"`
	Status     enums.JobStatus `json:"status"`
	Mode       enums.ExecMode  `json:"mode"`
	Progress   int             `json:"progress"`
	Phase      enums.Phase     `json:"phase"`
	Step       string          `json:"current_step,omitempty"`
	ItemsFound int             `json:"items_found"`
	Config     job.Config      `json:"config"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	OutputFile string          `json:"output_file,omitempty"`
	Error      string          `json:"error,omitempty"`
	Logs       []string        `json:"logs"`
}

// Duration returns how long the job runs or ran
func (v View) Duration() time.Duration {
	if v.FinishedAt.IsZero() {
		return time.Since(v.StartedAt)
	}
	return v.FinishedAt.Sub(v.StartedAt)
}

type entry struct {
	View
	state  progress.State
	logs   *LogBuffer
	cancel context.CancelFunc
}

// Registry is a thread safe map of jobs
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*entry
	logLines int
	now      func() time.Time
}

// New makes empty registry keeping logLines last output lines per job
func New(logLines int) *Registry {
	if logLines <= 0 {
		logLines = DefaultLogLines
	}
	return &Registry{jobs: make(map[string]*entry), logLines: logLines, now: time.Now}
}

// Create registers a new job in starting state and returns its view.
// The id is made from store, category and current time, with a numeric suffix if already taken.
func (r *Registry) Create(store, category string, cfg job.Config, mode enums.ExecMode) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now()
	base := job.NewID(store, category, ts)
	id := base
	for i := 1; r.jobs[id] != nil; i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	e := &entry{
		View: View{ID: id, Store: store, Category: category, Status: enums.JobStatusStarting, Mode: mode,
			Phase: enums.PhaseInitializing, Config: cfg, StartedAt: ts},
		logs: NewLogBuffer(r.logLines),
	}
	r.jobs[id] = e
	return e.view()
}

// Get returns job view by id
func (r *Registry) Get(id string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return View{}, false
	}
	return e.view(), true
}

// All returns views of all known jobs
func (r *Registry) All() map[string]View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make(map[string]View, len(r.jobs))
	for id, e := range r.jobs {
		res[id] = e.view()
	}
	return res
}

// Transition moves job to a new status. Returns false if the job is unknown
// or the transition isn't allowed from its current status, i.e. the job is already terminal.
func (r *Registry) Transition(id string, to enums.JobStatus, errMsg string) bool {
	return r.Settle(id, to, errMsg, nil)
}

// Settle is Transition running fn under the registry lock right before the status changes.
// fn is not called if the transition isn't allowed, so a job stopped meanwhile never runs it.
func (r *Registry) Settle(id string, to enums.JobStatus, errMsg string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return false
	}
	if !allowed(e.Status, to) {
		log.Printf("[DEBUG] ignore transition of %s from %s to %s", id, e.Status, to)
		return false
	}
	if fn != nil {
		fn()
	}
	e.Status = to
	if errMsg != "" {
		e.Error = errMsg
	}
	if to == enums.JobStatusUploading {
		e.Phase = enums.PhaseUploading
	}
	if to.IsTerminal() {
		e.FinishedAt = r.now()
		e.cancel = nil
		if to == enums.JobStatusCompleted {
			e.Progress = 100
			e.Phase = enums.PhaseFinished
		}
	}
	return true
}

// ApplyLine records output line and updates progress. The first line of a starting job marks it running.
func (r *Registry) ApplyLine(id, line string) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.logs.Add(line)

	upd := progress.Classify(line, e.Config)
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Status == enums.JobStatusStarting {
		e.Status = enums.JobStatusRunning
	}
	if e.Status.IsTerminal() || upd == nil {
		return
	}
	e.state = progress.Merge(e.state, upd, e.Config)
	e.sync()
}

// MarkRunning moves a starting job to running, no-op for any other status
func (r *Registry) MarkRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[id]; ok && e.Status == enums.JobStatusStarting {
		e.Status = enums.JobStatusRunning
	}
}

// SetOutput sets final output file and item count, the count never goes down
func (r *Registry) SetOutput(id, file string, items int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return
	}
	e.state.OutputFile = file
	e.state.Items = max(e.state.Items, items)
	e.sync()
}

// SetCancel attaches cancel func owning the job process
func (r *Registry) SetCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.jobs[id]; ok && !e.Status.IsTerminal() {
		e.cancel = cancel
	}
}

// Cancel invokes and drops the cancel func of the job. Safe to call multiple times.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.jobs[id]
	var cancel context.CancelFunc
	if ok {
		cancel, e.cancel = e.cancel, nil
	}
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return ok
}

// OutputHint returns output file reported by the crawler output, if any
func (r *Registry) OutputHint(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.jobs[id]; ok {
		return e.state.OutputFile
	}
	return ""
}

// LogTail returns last n log lines of the job
func (r *Registry) LogTail(id string, n int) string {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return ""
	}
	return e.logs.Tail(n)
}

// CountActive returns number of non-terminal jobs
func (r *Registry) CountActive() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := 0
	for _, e := range r.jobs {
		if !e.Status.IsTerminal() {
			res++
		}
	}
	return res
}

// Reap removes stopped and failed jobs finished more than grace ago. Completed jobs are kept.
func (r *Registry) Reap(grace time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	reaped := 0
	maps.DeleteFunc(r.jobs, func(id string, e *entry) bool {
		if e.Status != enums.JobStatusStopped && e.Status != enums.JobStatusFailed {
			return false
		}
		if now.Sub(e.FinishedAt) < grace {
			return false
		}
		log.Printf("[DEBUG] reap %s job %s", e.Status, id)
		reaped++
		return true
	})
	return reaped
}

// Remove drops a finished job, active jobs are kept. Returns true if removed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || !e.Status.IsTerminal() {
		return false
	}
	delete(r.jobs, id)
	return true
}

// RunReaper calls Reap every interval till context canceled
func (r *Registry) RunReaper(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(grace); n > 0 {
				log.Printf("[INFO] reaped %d idle jobs", n)
			}
		}
	}
}

func (e *entry) sync() {
	e.Progress = max(e.Progress, e.state.Percent)
	if e.state.Phase != (enums.Phase{}) {
		e.Phase = e.state.Phase
	}
	e.Step = e.state.Step
	e.ItemsFound = e.state.Items
	e.OutputFile = e.state.OutputFile
}

func (e *entry) view() View {
	v := e.View
	v.Logs = e.logs.Lines()
	return v
}

func allowed(from, to enums.JobStatus) bool {
	return slices.Contains(transitions[from], to)
}
