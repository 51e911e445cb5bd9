package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/schedule/mocks"
)

type testCatalog struct {
	mu      sync.Mutex
	cat     *config.Catalog
	err     error
	changes chan *config.Catalog
}

func (c *testCatalog) String() string { return "test catalog" }

func (c *testCatalog) Load() (*config.Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cat, c.err
}

func (c *testCatalog) Changes(context.Context) (<-chan *config.Catalog, error) {
	if c.changes == nil {
		return nil, errors.New("no changes")
	}
	return c.changes, nil
}

type syncerFunc func(ctx context.Context) reconcile.Report

func (f syncerFunc) Sync(ctx context.Context) reconcile.Report { return f(ctx) }

func testCat(schedules ...config.Schedule) *config.Catalog {
	return &config.Catalog{Stores: map[string]config.StoreConfig{
		"keells":   {Command: []string{"x"}, Categories: []string{"fruits", "vegetables"}},
		"cargills": {Command: []string{"x"}, Categories: []string{"dairy", "fruits"}},
	}, Schedules: schedules}
}

func okSubmitter() *mocks.SubmitterMock {
	return &mocks.SubmitterMock{SubmitBatchFunc: func(_ context.Context, specs []job.Spec, _ enums.BatchMode, _ bool) ([]string, error) {
		res := make([]string, len(specs))
		for i, s := range specs {
			res[i] = s.Store + "_" + s.Category
		}
		return res, nil
	}}
}

func TestPlanner_Load(t *testing.T) {
	cat := &testCatalog{cat: testCat(
		config.Schedule{Spec: "0 6 * * *"},
		config.Schedule{Spec: "@every 2h", Stores: []string{"keells"}, Mode: enums.BatchModeSequential},
	)}
	p := Planner{Cron: cron.New(), Catalog: cat, Jobs: okSubmitter(), dedup: NewDeDup(),
		Syncer: syncerFunc(func(context.Context) reconcile.Report { return reconcile.Report{} }), SyncSpec: "@every 15m"}

	require.NoError(t, p.load(context.Background(), nil))
	assert.Len(t, p.Entries(), 3)

	require.NoError(t, p.load(context.Background(), testCat(config.Schedule{Spec: "*/5 * * * *"})))
	assert.Len(t, p.Entries(), 2, "old entries replaced")

	err := p.load(context.Background(), testCat(config.Schedule{Spec: "bad spec"}))
	require.Error(t, err)

	p.SyncSpec = "never"
	require.Error(t, p.load(context.Background(), testCat()))
}

func TestPlanner_BatchFunc(t *testing.T) {
	sub := okSubmitter()
	cat := &testCatalog{cat: testCat()}
	p := Planner{Cron: cron.New(), Catalog: cat, Jobs: sub, dedup: NewDeDup()}

	s := config.Schedule{Spec: "@daily", Categories: []string{"fruits"}, Mode: enums.BatchModeSequential,
		Job: job.Config{MaxItems: 20}}
	sched, err := cron.ParseStandard(s.Spec)
	require.NoError(t, err)
	p.batchFunc(context.Background(), s, sched)()

	require.Len(t, sub.SubmitBatchCalls(), 1)
	call := sub.SubmitBatchCalls()[0]
	assert.Equal(t, []job.Spec{
		{Store: "cargills", Category: "fruits", Config: job.Config{MaxItems: 20}},
		{Store: "keells", Category: "fruits", Config: job.Config{MaxItems: 20}},
	}, call.Specs)
	assert.Equal(t, enums.BatchModeSequential, call.Mode)
	assert.True(t, call.Wait)

	// unknown store in schedule, nothing submitted
	p.batchFunc(context.Background(), config.Schedule{Spec: "@daily", Stores: []string{"glomark"}}, sched)()
	assert.Len(t, sub.SubmitBatchCalls(), 1)

	// catalog failure, nothing submitted
	cat.mu.Lock()
	cat.err = errors.New("broken yaml")
	cat.mu.Unlock()
	p.batchFunc(context.Background(), s, sched)()
	assert.Len(t, sub.SubmitBatchCalls(), 1)
}

func TestPlanner_BatchFuncNoOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	sub := &mocks.SubmitterMock{SubmitBatchFunc: func(context.Context, []job.Spec, enums.BatchMode, bool) ([]string, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}}
	p := Planner{Cron: cron.New(), Catalog: &testCatalog{cat: testCat()}, Jobs: sub, dedup: NewDeDup()}
	s := config.Schedule{Spec: "@hourly", Stores: []string{"keells"}}
	sched, err := cron.ParseStandard(s.Spec)
	require.NoError(t, err)
	fn := p.batchFunc(context.Background(), s, sched)

	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	<-started
	fn() // returns immediately, previous run still active
	assert.Len(t, sub.SubmitBatchCalls(), 1)

	close(release)
	<-done
	go fn()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("next run not started after previous finished")
	}
}

func TestPlanner_BatchFuncJitterCanceled(t *testing.T) {
	sub := okSubmitter()
	p := Planner{Cron: cron.New(), Catalog: &testCatalog{cat: testCat()}, Jobs: sub, dedup: NewDeDup(), Jitter: time.Hour}
	s := config.Schedule{Spec: "@hourly"}
	sched, err := cron.ParseStandard(s.Spec)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.batchFunc(ctx, s, sched)()
	assert.Empty(t, sub.SubmitBatchCalls())
}

func TestPlanner_SyncFunc(t *testing.T) {
	var calls atomic.Int32
	var reports []reconcile.Report
	p := Planner{dedup: NewDeDup(),
		Syncer: syncerFunc(func(context.Context) reconcile.Report {
			calls.Add(1)
			return reconcile.Report{LocalAdded: 2}
		}),
		OnSync: func(rep reconcile.Report) { reports = append(reports, rep) },
	}
	p.syncFunc(context.Background())()
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].LocalAdded)

	p.dedup.Add("sync")
	p.syncFunc(context.Background())()
	assert.Equal(t, int32(1), calls.Load(), "skipped while another sync runs")
}

func TestPlanner_DoWithUpdates(t *testing.T) {
	cat := &testCatalog{cat: testCat(config.Schedule{Spec: "@daily"}), changes: make(chan *config.Catalog)}
	p := Planner{Cron: cron.New(), Catalog: cat, Jobs: okSubmitter(), UpdatesEnabled: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Do(ctx) }()

	require.Eventually(t, func() bool { return len(p.Entries()) == 1 }, time.Second, 10*time.Millisecond)
	cat.changes <- testCat(config.Schedule{Spec: "@daily"}, config.Schedule{Spec: "@weekly"})
	require.Eventually(t, func() bool { return len(p.Entries()) == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("planner not stopped")
	}
}

func TestPlanner_DoLoadFailure(t *testing.T) {
	p := Planner{Cron: cron.New(), Catalog: &testCatalog{err: errors.New("bad catalog")}, Jobs: okSubmitter()}
	err := p.Do(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad catalog")
}

func TestPlanner_DoMissingCatalogWithUpdates(t *testing.T) {
	missing := fmt.Errorf("can't read: %w", os.ErrNotExist)
	p := Planner{Cron: cron.New(), Catalog: &testCatalog{err: missing, changes: make(chan *config.Catalog)},
		Jobs: okSubmitter(), UpdatesEnabled: true}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Do(ctx), "waits for catalog to appear")
}

func TestDeDup(t *testing.T) {
	d := NewDeDup()
	assert.True(t, d.Add("a"))
	assert.False(t, d.Add("a"))
	assert.False(t, d.Since("a").IsZero())
	assert.True(t, d.Since("b").IsZero())
	d.Remove("a")
	d.Remove("a")
	assert.True(t, d.Add("a"))
}
