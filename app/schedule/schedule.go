// Package schedule starts crawl batches by cron specs from the catalog and runs periodic reconciliation.
// Schedules are reloaded when the catalog file changes.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
)

//go:generate moq -out mocks/submitter.go -pkg mocks -skip-ensure -fmt goimports . Submitter

// Cron interface defines basic robfig/cron methods used by planner
type Cron interface {
	Start()
	Stop() context.Context
	Entries() []cron.Entry
	Schedule(schedule cron.Schedule, cmd cron.Job) cron.EntryID
	Remove(id cron.EntryID)
}

// Catalog provides schedules and their updates
type Catalog interface {
	String() string
	Load() (*config.Catalog, error)
	Changes(ctx context.Context) (<-chan *config.Catalog, error)
}

// Submitter starts batches of crawl jobs
type Submitter interface {
	SubmitBatch(ctx context.Context, specs []job.Spec, mode enums.BatchMode, wait bool) ([]string, error)
}

// Syncer reconciles stored results with result files
type Syncer interface {
	Sync(ctx context.Context) reconcile.Report
}

// Planner is a blocking service running catalog schedules
type Planner struct {
	Cron
	Catalog        Catalog
	Jobs           Submitter
	UpdatesEnabled bool
	Jitter         time.Duration

	Syncer   Syncer                 // optional
	SyncSpec string                 // cron spec of periodic reconciliation, e.g. "@every 15m"
	OnSync   func(reconcile.Report) // optional

	dedup *DeDup
}

// Do runs blocking planner. If UpdatesEnabled is true and catalog fails to load,
// the planner starts with zero schedules and waits for catalog updates.
func (p *Planner) Do(ctx context.Context) error {
	if p.dedup == nil {
		p.dedup = NewDeDup()
	}
	if p.UpdatesEnabled {
		log.Printf("[INFO] updater activated for %s", p.Catalog.String())
		go p.reload(ctx)
	}

	if err := p.load(ctx, nil); err != nil {
		if !p.UpdatesEnabled || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		log.Printf("[INFO] catalog file doesn't exist yet, running with zero schedules, waiting for updates")
	}
	p.Start()
	<-ctx.Done()
	log.Print("[DEBUG] terminate planner")
	<-p.Stop().Done()
	return nil
}

// load removes all cron entries and schedules catalog ones. Catalog is read from file if cat is nil.
func (p *Planner) load(ctx context.Context, cat *config.Catalog) error {
	for _, entry := range p.Entries() {
		p.Remove(entry.ID)
	}
	if p.Syncer != nil && p.SyncSpec != "" {
		sched, err := cron.ParseStandard(p.SyncSpec)
		if err != nil {
			return fmt.Errorf("can't parse sync spec %q: %w", p.SyncSpec, err)
		}
		p.Schedule(sched, p.syncFunc(ctx))
	}

	if cat == nil {
		c, err := p.Catalog.Load()
		if err != nil {
			return fmt.Errorf("failed to load catalog %s: %w", p.Catalog.String(), err)
		}
		cat = c
	}
	for _, s := range cat.Schedules {
		sched, err := cron.ParseStandard(s.Spec)
		if err != nil {
			return fmt.Errorf("can't parse %s: %w", s.Spec, err)
		}
		id := p.Schedule(sched, p.batchFunc(ctx, s, sched))
		log.Printf("[INFO] first: %s, %s (%v)", sched.Next(time.Now()).Format(time.RFC3339), describe(s), id)
	}
	return nil
}

// reload runs blocking loop reacting on catalog changes and rescheduling
func (p *Planner) reload(ctx context.Context) {
	ch, err := p.Catalog.Changes(ctx)
	if err != nil {
		log.Printf("[WARN] can't watch catalog changes, %v", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case cat, ok := <-ch:
			if !ok {
				return
			}
			log.Printf("[DEBUG] catalog update detected, %d schedules", len(cat.Schedules))
			if err := p.load(ctx, cat); err != nil {
				log.Printf("[WARN] failed to update schedules, %v", err)
			}
		}
	}
}

// batchFunc makes cron job starting the schedule batch and waiting for its completion.
// A run is skipped while the previous run of the same schedule is in progress.
func (p *Planner) batchFunc(ctx context.Context, s config.Schedule, sched cron.Schedule) cron.FuncJob {
	return func() {
		desc := describe(s)
		if !p.dedup.Add(desc) {
			log.Printf("[WARN] skip %s, previous run active since %s", desc, p.dedup.Since(desc).Format(time.RFC3339))
			return
		}
		defer p.dedup.Remove(desc)

		if p.Jitter > 0 {
			select {
			case <-time.After(rand.N(p.Jitter)): //nolint:gosec // jitter doesn't need crypto rand
			case <-ctx.Done():
				return
			}
		}

		cat, err := p.Catalog.Load()
		if err != nil {
			log.Printf("[WARN] can't run %s, %v", desc, err)
			return
		}
		specs, err := cat.Expand(s.Stores, s.Categories)
		if err != nil {
			log.Printf("[WARN] can't run %s, %v", desc, err)
			return
		}
		for i := range specs {
			specs[i].Config = s.Job
		}

		log.Printf("[INFO] executing: %s, %d jobs", desc, len(specs))
		ids, err := p.Jobs.SubmitBatch(ctx, specs, s.Mode, true)
		if err != nil {
			log.Printf("[WARN] batch failed: %s, %v", desc, err)
			return
		}
		log.Printf("[INFO] completed %s, jobs %s", desc, strings.Join(ids, ","))
		log.Printf("[INFO] next: %s, %s", sched.Next(time.Now()).Format(time.RFC3339), desc)
	}
}

func (p *Planner) syncFunc(ctx context.Context) cron.FuncJob {
	return func() {
		if !p.dedup.Add("sync") {
			return
		}
		defer p.dedup.Remove("sync")
		rep := p.Syncer.Sync(ctx)
		log.Printf("[INFO] scheduled sync: %s", rep)
		if p.OnSync != nil {
			p.OnSync(rep)
		}
	}
}

func describe(s config.Schedule) string {
	stores, cats := "all", "all"
	if len(s.Stores) > 0 {
		stores = strings.Join(s.Stores, ",")
	}
	if len(s.Categories) > 0 {
		cats = strings.Join(s.Categories, ",")
	}
	return fmt.Sprintf("%s stores=%s categories=%s mode=%s", s.Spec, stores, cats, s.Mode)
}
