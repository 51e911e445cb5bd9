// Package api implements the http api of the crawl service: job submission and control,
// results and storage stats, catalog and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

//go:generate moq -out mocks/jobs.go -pkg mocks -skip-ensure -fmt goimports . Jobs
//go:generate moq -out mocks/results.go -pkg mocks -skip-ensure -fmt goimports . Results

// Jobs submits and controls crawl jobs
type Jobs interface {
	Submit(ctx context.Context, store, category string, cfg job.Config) (string, error)
	SubmitBatch(ctx context.Context, specs []job.Spec, mode enums.BatchMode, wait bool) ([]string, error)
	Stop(id string) bool
	StopAll() int
	GetStatus(id string) (registry.View, bool)
	GetAllStatuses() map[string]registry.View
}

// Results gives access to stored crawl results
type Results interface {
	List(ctx context.Context) []store.ResultEntry
	Get(ctx context.Context, id string) (store.ResultEntry, bool)
	Items(ctx context.Context, id string) ([]json.RawMessage, error)
	Delete(ctx context.Context, ids []string, purge bool) int
	Clear(ctx context.Context, purge bool) int
	Sync(ctx context.Context) reconcile.Report
	Stats(ctx context.Context) reconcile.Stats
}

// Catalog provides the crawler catalog
type Catalog interface {
	Load() (*config.Catalog, error)
	MaxConcurrentJobs() int
}

// Config holds server configuration
type Config struct {
	Jobs          Jobs
	Results       Results
	Catalog       Catalog
	Version       string
	AuthUser      string                          // basic auth user, "crawl" if empty
	PasswordHash  string                          // bcrypt hash for basic auth (empty to disable)
	MutationLimit float64                         // max mutating requests per second per client, 0 for default
	Metrics       http.Handler                    // served on /metrics if set
	Middleware    func(http.Handler) http.Handler // optional instrumentation, e.g. request metrics
	OnSync        func(rep reconcile.Report)      // called after forced sync, optional
	WriteTimeout  time.Duration                   // response write timeout, long enough for waiting batches
}

// Server is the http api server
type Server struct {
	Config
}

// New makes api server
func New(cfg Config) (*Server, error) {
	if cfg.Jobs == nil || cfg.Results == nil || cfg.Catalog == nil {
		return nil, errors.New("api server initialization failed: jobs, results and catalog are required")
	}
	if cfg.AuthUser == "" {
		cfg.AuthUser = "crawl"
	}
	if cfg.MutationLimit <= 0 {
		cfg.MutationLimit = 10
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	return &Server{Config: cfg}, nil
}

// Run starts the http server and blocks till context canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting api server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("crawl-orchestrator", "shopple", s.Version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)
	if s.Middleware != nil {
		router.Use(s.Middleware)
	}
	if s.PasswordHash != "" {
		log.Printf("[INFO] authentication enabled for api")
		router.Use(s.authMiddleware)
	}

	if s.Metrics != nil {
		router.Handle("GET /metrics", s.Metrics)
	}

	lmt := tollbooth.NewLimiter(s.MutationLimit, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	limited := tollbooth.HTTPMiddleware(lmt)

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		api.HandleFunc("GET /status", s.handleStatus)
		api.HandleFunc("GET /jobs", s.handleListJobs)
		api.HandleFunc("GET /jobs/{id}", s.handleGetJob)
		api.With(limited).HandleFunc("POST /jobs", s.handleSubmit)
		api.With(limited).HandleFunc("POST /jobs/batch", s.handleBatch)
		api.With(limited).HandleFunc("POST /jobs/stop-all", s.handleStopAll)
		api.With(limited).HandleFunc("POST /jobs/{id}/stop", s.handleStop)

		api.HandleFunc("GET /results", s.handleListResults)
		api.HandleFunc("GET /results/{id}", s.handleGetResult)
		api.HandleFunc("GET /results/{id}/items", s.handleResultItems)
		api.With(limited).HandleFunc("DELETE /results/{id}", s.handleDeleteResult)
		api.With(limited).HandleFunc("POST /results/delete", s.handleDeleteResults)
		api.With(limited).HandleFunc("DELETE /results", s.handleClearResults)
		api.With(limited).HandleFunc("POST /results/sync", s.handleSync)

		api.HandleFunc("GET /storage", s.handleStorage)
		api.HandleFunc("GET /catalog", s.handleCatalog)
		api.HandleFunc("GET /catalog/schema", s.handleSchema)
	})
	return router
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, rest.JSON{"error": message})
}
