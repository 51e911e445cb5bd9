package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
)

type activeFunc func() int

func (f activeFunc) CountActive() int { return f() }

func TestMetrics_Jobs(t *testing.T) {
	m := New(activeFunc(func() int { return 3 }))
	now := time.Now()
	v := registry.View{ID: "j1", Store: "keells", Category: "fruits", Mode: enums.ExecModeLocal,
		StartedAt: now.Add(-time.Minute), FinishedAt: now}

	m.OnJobStart(v)
	m.OnJobStart(v)
	v.Status, v.ItemsFound = enums.JobStatusCompleted, 12
	m.OnJobComplete(v)
	v.Status, v.ItemsFound = enums.JobStatusFailed, 0
	m.OnJobComplete(v)

	assert.InDelta(t, 2, testutil.ToFloat64(m.jobsStarted.WithLabelValues("keells", "local")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.jobsFinished.WithLabelValues("keells", "completed")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.jobsFinished.WithLabelValues("keells", "failed")), 0.01)
	assert.InDelta(t, 12, testutil.ToFloat64(m.itemsTotal.WithLabelValues("keells", "fruits")), 0.01)
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.jobItems), "only completed jobs observed")

	n, err := testutil.GatherAndCount(m.Registry(), "crawl_jobs_active")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_Sync(t *testing.T) {
	m := New(nil)
	m.ObserveSync(reconcile.Report{LocalAdded: 2, RemoteAdded: 1, Duration: 20 * time.Millisecond})
	m.ObserveSync(reconcile.Report{LocalAdded: 1, Errors: 1})

	assert.InDelta(t, 2, testutil.ToFloat64(m.syncRuns), 0.01)
	assert.InDelta(t, 3, testutil.ToFloat64(m.syncFound.WithLabelValues("local")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.syncFound.WithLabelValues("remote")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.syncFound.WithLabelValues("error")), 0.01)
	assert.Equal(t, 3, testutil.CollectAndCount(m.syncFound), "zero counts not created")
}

type uploaderFunc func() (remote.Uploaded, error)

func (f uploaderFunc) Upload(context.Context, string, string, string, map[string]string) (remote.Uploaded, error) {
	return f()
}

func TestUploader(t *testing.T) {
	m := New(nil)
	ok := &Uploader{Metrics: m, Uploader: uploaderFunc(func() (remote.Uploaded, error) {
		return remote.Uploaded{Blob: remote.Blob{Path: "crawl/a/b/c.json", Size: 100}}, nil
	})}
	res, err := ok.Upload(context.Background(), "a", "b", "/tmp/c.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "crawl/a/b/c.json", res.Path)

	bad := &Uploader{Metrics: m, Uploader: uploaderFunc(func() (remote.Uploaded, error) {
		return remote.Uploaded{}, errors.New("bucket gone")
	})}
	_, err = bad.Upload(context.Background(), "a", "b", "/tmp/c.json", nil)
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("ok")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.uploadsTotal.WithLabelValues("failed")), 0.01)
	assert.InDelta(t, 100, testutil.ToFloat64(m.uploadBytes), 0.01)
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.Handle("GET /metrics", m.Handler())
	ts := httptest.NewServer(m.Middleware(mux))
	defer ts.Close()

	for range 2 {
		resp, err := http.Get(ts.URL + "/api/v1/jobs/123")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	resp, err := http.Get(ts.URL + "/nothing")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.InDelta(t, 2, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /api/v1/jobs/{id}", "404")), 0.01)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")), 0.01)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{code="404",method="GET",route="GET /api/v1/jobs/{id}"} 2`)
	assert.Contains(t, string(body), "go_goroutines")
}
