// Package scheduler starts crawl jobs, alone or in batches, runs them locally in a bounded pool or
// through the cross-process queue, and drives them through their lifecycle to a terminal state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/conditions"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/queue"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

//go:generate moq -out mocks/catalog.go -pkg mocks -skip-ensure -fmt goimports . Catalog
//go:generate moq -out mocks/results.go -pkg mocks -skip-ensure -fmt goimports . ResultRecorder
//go:generate moq -out mocks/uploader.go -pkg mocks -skip-ensure -fmt goimports . Uploader
//go:generate moq -out mocks/job_event_handler.go -pkg mocks -skip-ensure -fmt goimports . JobEventHandler

// Catalog provides crawler catalog, loaded fresh on every call
type Catalog interface {
	Load() (*config.Catalog, error)
	MaxConcurrentJobs() int
}

// ResultRecorder keeps results of completed jobs
type ResultRecorder interface {
	Record(entry store.ResultEntry)
}

// Transport dispatches jobs to another process and follows them till completion
type Transport interface {
	Dispatch(ctx context.Context, d queue.Descriptor) error
	Follow(ctx context.Context, jobID string, onLine func(string)) (int, error)
	Cancel(jobID string) error
}

// Uploader moves result files to the remote store
type Uploader interface {
	Upload(ctx context.Context, store, category, localPath string, meta map[string]string) (remote.Uploaded, error)
}

// Gate holds a job till host conditions allow it to start
type Gate interface {
	Wait(ctx context.Context, cfg conditions.Config, jobDesc string) bool
}

// JobEventHandler receives job lifecycle events
type JobEventHandler interface {
	OnJobStart(v registry.View)
	OnJobComplete(v registry.View)
}

// ConfigError returned for submissions referencing unknown catalog entries or invalid job configs
type ConfigError struct {
	Store    string
	Category string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bad job %s/%s: %v", e.Store, e.Category, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config defines scheduler collaborators and timings. Zero timings get defaults.
type Config struct {
	Registry     *registry.Registry
	Catalog      Catalog
	Results      ResultRecorder
	Transport    Transport // required for stores in queue mode
	Uploader     Uploader  // optional, no uploads if nil
	Gate         Gate      // optional admission gate for local jobs
	Events       []JobEventHandler
	PoolSize     int
	StopGrace    time.Duration // between SIGTERM and SIGKILL
	PollInterval time.Duration // completion and queue slot polling
	BatchTimeout time.Duration // max wait for a batch member
	JobTimeout   time.Duration // zero for no limit
	ReapInterval time.Duration
	ReapGrace    time.Duration
	Stdout       io.Writer // optional echo of job output
}

// Scheduler runs crawl jobs
type Scheduler struct {
	Config
	pool    *syncs.SizedGroup
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopGen atomic.Int64

	slotsMu   sync.Mutex
	slotsUsed int

	outputMu sync.Mutex // serializes picking of output files
}

// New makes Scheduler. Jobs submitted before Run start right away.
func New(cfg Config) *Scheduler {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 300 * time.Second
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	if cfg.ReapGrace <= 0 {
		cfg.ReapGrace = registry.DefaultReapGrace
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New(registry.DefaultLogLines)
	}
	res := &Scheduler{Config: cfg, pool: syncs.NewSizedGroup(cfg.PoolSize)}
	res.ctx, res.cancel = context.WithCancel(context.Background())
	return res
}

// Run reaps idle jobs till context canceled, then stops all jobs and waits for them to finish
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[INFO] scheduler started, pool size %d", s.PoolSize)
	go s.Registry.RunReaper(ctx, s.ReapInterval, s.ReapGrace)
	<-ctx.Done()
	n := s.StopAll()
	log.Printf("[INFO] scheduler terminating, stopped %d jobs", n)
	s.cancel()
	s.pool.Wait()
	s.wg.Wait()
}

// Submit starts a single job. Unknown store or category and invalid config rejected with *ConfigError.
// Returns job id, the job runs in background and outlives ctx.
func (s *Scheduler) Submit(ctx context.Context, store, category string, cfg job.Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	spec := job.Spec{Store: store, Category: category, Config: cfg}
	cat, err := s.catalog([]job.Spec{spec})
	if err != nil {
		return "", err
	}
	return s.start(cat, spec), nil
}

// SubmitBatch starts jobs for all specs. All specs are validated before any job starts.
// Parallel mode starts everything at once and with wait blocks till all jobs are terminal.
// Sequential mode starts each job after the previous one is terminal or its wait timed out,
// without wait the sequence runs in background and only the first job id is returned.
func (s *Scheduler) SubmitBatch(ctx context.Context, specs []job.Spec, mode enums.BatchMode, wait bool) ([]string, error) {
	if len(specs) == 0 {
		return []string{}, nil
	}
	cat, err := s.catalog(specs)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] submit %s batch of %d jobs", mode, len(specs))

	if mode == enums.BatchModeSequential {
		if wait {
			return s.runSequence(ctx, cat, specs, ""), nil
		}
		first := s.start(cat, specs[0])
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runSequence(s.ctx, cat, specs, first)
		}()
		return []string{first}, nil
	}

	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		ids = append(ids, s.start(cat, spec))
	}
	if wait {
		deadline := time.Now().Add(s.BatchTimeout)
		for _, id := range ids {
			if !s.waitForCompletion(ctx, id, time.Until(deadline)) {
				break
			}
		}
	}
	return ids, nil
}

// Stop stops the job. Safe to call multiple times and for finished jobs, returns false for unknown id.
func (s *Scheduler) Stop(id string) bool {
	v, ok := s.Registry.Get(id)
	if !ok {
		return false
	}
	if v.Status.IsTerminal() {
		return true
	}
	s.Registry.Cancel(id)
	if v.Mode == enums.ExecModeQueue && s.Transport != nil {
		if err := s.Transport.Cancel(id); err != nil {
			log.Printf("[WARN] can't cancel queued job %s, %v", id, err)
		}
	}
	s.finish(id, enums.JobStatusStopped, "")
	return true
}

// StopAll stops all active jobs and pending sequential batches, returns number of stopped jobs
func (s *Scheduler) StopAll() int {
	s.stopGen.Add(1)
	res := 0
	for id, v := range s.Registry.All() {
		if v.Status.IsTerminal() {
			continue
		}
		if s.Stop(id) {
			res++
		}
	}
	return res
}

// GetStatus returns job state
func (s *Scheduler) GetStatus(id string) (registry.View, bool) {
	return s.Registry.Get(id)
}

// GetAllStatuses returns states of all known jobs
func (s *Scheduler) GetAllStatuses() map[string]registry.View {
	return s.Registry.All()
}

// ActiveJobs returns number of non-terminal jobs
func (s *Scheduler) ActiveJobs() int {
	return s.Registry.CountActive()
}

// catalog loads the catalog and validates specs against it
func (s *Scheduler) catalog(specs []job.Spec) (*config.Catalog, error) {
	cat, err := s.Catalog.Load()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	for _, spec := range specs {
		if err := cat.Check(spec.Store, spec.Category); err != nil {
			return nil, &ConfigError{Store: spec.Store, Category: spec.Category, Err: err}
		}
		if err := spec.Config.Validate(); err != nil {
			return nil, &ConfigError{Store: spec.Store, Category: spec.Category, Err: err}
		}
		if cat.ExecMode(spec.Store) == enums.ExecModeQueue && s.Transport == nil {
			return nil, &ConfigError{Store: spec.Store, Category: spec.Category,
				Err: errors.New("store runs in queue mode, but no queue configured")}
		}
	}
	return cat, nil
}

// start registers the job and launches it in background
func (s *Scheduler) start(cat *config.Catalog, spec job.Spec) string {
	mode := enums.ExecModeLocal
	if cat.ExecMode(spec.Store) == enums.ExecModeQueue {
		mode = enums.ExecModeQueue
	}
	v := s.Registry.Create(spec.Store, spec.Category, spec.Config, mode)

	var ctx context.Context
	var cancel context.CancelFunc
	if s.JobTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.JobTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.Registry.SetCancel(v.ID, cancel)
	log.Printf("[INFO] job %s submitted, mode %s, max items %d", v.ID, mode, spec.Config.EffectiveMax())
	for _, h := range s.Events {
		h.OnJobStart(v)
	}

	if mode == enums.ExecModeQueue {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer cancel()
			s.runQueued(ctx, v, cat)
		}()
		return v.ID
	}
	s.pool.Go(func(context.Context) {
		defer cancel()
		s.runLocal(ctx, v, cat)
	})
	return v.ID
}

// runSequence starts specs one by one. Stops early on context cancellation or StopAll.
func (s *Scheduler) runSequence(ctx context.Context, cat *config.Catalog, specs []job.Spec, firstID string) []string {
	gen := s.stopGen.Load()
	ids := make([]string, 0, len(specs))
	for i, spec := range specs {
		if ctx.Err() != nil || s.stopGen.Load() != gen {
			log.Printf("[INFO] sequential batch interrupted, %d of %d jobs not started", len(specs)-i, len(specs))
			break
		}
		id := firstID
		if i > 0 || id == "" {
			id = s.start(cat, spec)
		}
		ids = append(ids, id)
		if !s.waitForCompletion(ctx, id, s.BatchTimeout) && ctx.Err() == nil {
			log.Printf("[WARN] job %s not finished in %v, starting next one", id, s.BatchTimeout)
		}
	}
	return ids
}

// waitForCompletion polls the registry till the job is terminal, returns false on timeout or canceled context
func (s *Scheduler) waitForCompletion(ctx context.Context, id string, timeout time.Duration) bool {
	deadline := time.NewTimer(max(timeout, 0))
	defer deadline.Stop()
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()
	for {
		v, ok := s.Registry.Get(id)
		if !ok || v.Status.IsTerminal() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
		}
	}
}

// acquireSlot waits for a free cross-process slot. The limit is read on every attempt.
func (s *Scheduler) acquireSlot(ctx context.Context, id string) bool {
	logged := false
	for {
		limit := s.Catalog.MaxConcurrentJobs()
		s.slotsMu.Lock()
		if s.slotsUsed < limit {
			s.slotsUsed++
			s.slotsMu.Unlock()
			return true
		}
		used := s.slotsUsed
		s.slotsMu.Unlock()
		if !logged {
			log.Printf("[DEBUG] job %s waits for queue slot, %d used of %d", id, used, limit)
			logged = true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.PollInterval):
		}
	}
}

func (s *Scheduler) releaseSlot() {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	s.slotsUsed = max(s.slotsUsed-1, 0)
}

// finish moves the job to terminal status and fires completion events once
func (s *Scheduler) finish(id string, status enums.JobStatus, errMsg string) {
	if !s.Registry.Transition(id, status, errMsg) {
		return
	}
	s.announce(id, status, errMsg)
}

// announce logs terminal status and passes it to event handlers
func (s *Scheduler) announce(id string, status enums.JobStatus, errMsg string) {
	v, ok := s.Registry.Get(id)
	if !ok {
		return
	}
	switch status {
	case enums.JobStatusFailed:
		log.Printf("[WARN] job %s failed after %v: %s", id, v.Duration().Truncate(time.Millisecond), errMsg)
	default:
		log.Printf("[INFO] job %s %s after %v, %d items", id, status, v.Duration().Truncate(time.Millisecond), v.ItemsFound)
	}
	for _, h := range s.Events {
		h.OnJobComplete(v)
	}
}

func (s *Scheduler) jobEnv(cat *config.Catalog, v registry.View) map[string]string {
	res := map[string]string{}
	maps.Copy(res, cat.Env(v.Store))
	maps.Copy(res, v.Config.Env())
	res["CRAWL_JOB_ID"] = v.ID
	res["CRAWL_STORE"] = v.Store
	res["CRAWL_CATEGORY"] = v.Category
	res["CRAWL_OUTPUT_DIR"] = cat.OutputDir(v.Store, v.Category)
	return res
}
