// Package metrics exposes prometheus collectors of crawl jobs, uploads, reconciliation and the http api
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
)

// Metrics keeps all collectors in its own registry, so multiple instances don't clash
type Metrics struct {
	reg *prometheus.Registry

	jobsStarted   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	itemsTotal    *prometheus.CounterVec
	jobItems      *prometheus.HistogramVec
	uploadsTotal  *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	syncRuns      prometheus.Counter
	syncFound     *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// ActiveCounter reports number of active jobs
type ActiveCounter interface {
	CountActive() int
}

// New makes Metrics with go and process collectors. Active jobs gauge reads active, if not nil.
func New(active ActiveCounter) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	res := &Metrics{
		reg: reg,
		jobsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_jobs_started_total",
			Help: "Total number of started crawl jobs, labeled by store and mode.",
		}, []string{"store", "mode"}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_jobs_finished_total",
			Help: "Total number of finished crawl jobs, labeled by store and final status.",
		}, []string{"store", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawl_job_duration_seconds",
			Help:    "Histogram of crawl job durations, labeled by store.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"store"}),
		itemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_items_total",
			Help: "Total number of products collected by completed jobs, labeled by store and category.",
		}, []string{"store", "category"}),
		jobItems: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crawl_job_items",
			Help:    "Histogram of products per completed job, labeled by store.",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
		}, []string{"store"}),
		uploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_uploads_total",
			Help: "Total number of result uploads, labeled by outcome.",
		}, []string{"result"}),
		uploadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "crawl_upload_bytes_total",
			Help: "Total size of uploaded result files.",
		}),
		syncRuns: f.NewCounter(prometheus.CounterOpts{
			Name: "crawl_reconcile_runs_total",
			Help: "Total number of reconciliation passes.",
		}),
		syncFound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_reconcile_results_total",
			Help: "Results found by reconciliation, labeled by kind.",
		}, []string{"kind"}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawl_reconcile_duration_seconds",
			Help:    "Histogram of reconciliation pass durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method, route and code.",
		}, []string{"method", "route", "code"}),
		httpDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
	if active != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "crawl_jobs_active",
			Help: "Number of crawl jobs not finished yet.",
		}, func() float64 { return float64(active.CountActive()) })
	}
	return res
}

// Handler returns http handler exposing collected metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns prometheus registry of all collectors
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// OnJobStart counts started jobs
func (m *Metrics) OnJobStart(v registry.View) {
	m.jobsStarted.WithLabelValues(v.Store, v.Mode.String()).Inc()
}

// OnJobComplete counts finished jobs, their duration and collected items
func (m *Metrics) OnJobComplete(v registry.View) {
	m.jobsFinished.WithLabelValues(v.Store, v.Status.String()).Inc()
	m.jobDuration.WithLabelValues(v.Store).Observe(v.Duration().Seconds())
	if v.Status == enums.JobStatusCompleted {
		m.jobItems.WithLabelValues(v.Store).Observe(float64(v.ItemsFound))
	}
	if v.ItemsFound > 0 {
		m.itemsTotal.WithLabelValues(v.Store, v.Category).Add(float64(v.ItemsFound))
	}
}

// ObserveUpload records outcome of a single upload
func (m *Metrics) ObserveUpload(size int64, err error) {
	if err != nil {
		m.uploadsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.uploadsTotal.WithLabelValues("ok").Inc()
	m.uploadBytes.Add(float64(size))
}

// ObserveSync records reconciliation report
func (m *Metrics) ObserveSync(rep reconcile.Report) {
	m.syncRuns.Inc()
	m.syncDuration.Observe(rep.Duration.Seconds())
	for kind, n := range map[string]int{"local": rep.LocalAdded, "remote": rep.RemoteAdded, "linked": rep.Linked,
		"tombstoned": rep.Tombstoned, "duplicate": rep.Duplicates, "error": rep.Errors} {
		if n > 0 {
			m.syncFound.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// Middleware counts requests and measures latency. Route label is the matched mux pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDurations.WithLabelValues(r.Method, route).Observe(time.Since(st).Seconds())
	})
}

// Uploader wraps uploader and counts uploads
type Uploader struct {
	Uploader interface {
		Upload(ctx context.Context, store, category, localPath string, meta map[string]string) (remote.Uploaded, error)
	}
	Metrics *Metrics
}

// Upload calls wrapped uploader and records the outcome
func (u *Uploader) Upload(ctx context.Context, store, category, localPath string, meta map[string]string) (remote.Uploaded, error) {
	res, err := u.Uploader.Upload(ctx, store, category, localPath, meta)
	u.Metrics.ObserveUpload(res.Size, err)
	return res, err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
