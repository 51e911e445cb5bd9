package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/scheduler"
)

// SubmitRequest is the body of POST /jobs
type SubmitRequest struct {
	Store    string     `json:"store"`
	Category string     `json:"category"`
	Config   job.Config `json:"config"`
}

// BatchRequest is the body of POST /jobs/batch. Empty stores selects all stores,
// empty categories selects all categories of selected stores.
type BatchRequest struct {
	Stores     []string        `json:"stores"`
	Categories []string        `json:"categories"`
	Mode       enums.BatchMode `json:"mode"`
	Wait       bool            `json:"wait"`
	Config     job.Config      `json:"config"`
}

// DeleteRequest is the body of POST /results/delete
type DeleteRequest struct {
	IDs   []string `json:"ids"`
	Purge bool     `json:"purge"`
}

// StatusResponse is the JSON response for /status
type StatusResponse struct {
	Active            int            `json:"active"`
	Total             int            `json:"total"`
	MaxConcurrentJobs int            `json:"max_concurrent_jobs"`
	ByStatus          map[string]int `json:"by_status"`
	Timestamp         time.Time      `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	all := s.Jobs.GetAllStatuses()
	resp := StatusResponse{Total: len(all), MaxConcurrentJobs: s.Catalog.MaxConcurrentJobs(),
		ByStatus: map[string]int{}, Timestamp: time.Now()}
	for _, v := range all {
		resp.ByStatus[v.Status.String()]++
		if !v.Status.IsTerminal() {
			resp.Active++
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleListJobs returns all jobs, newest first. ?active=true keeps unfinished jobs only.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	res := []registry.View{}
	for _, v := range s.Jobs.GetAllStatuses() {
		if activeOnly && v.Status.IsTerminal() {
			continue
		}
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartedAt.Equal(res[j].StartedAt) {
			return res[i].StartedAt.After(res[j].StartedAt)
		}
		return res[i].ID < res[j].ID
	})
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	v, ok := s.Jobs.GetStatus(r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req := SubmitRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.Jobs.Submit(r.Context(), req.Store, req.Category, req.Config)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, rest.JSON{"job_id": id})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	req := BatchRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cat, err := s.Catalog.Load()
	if err != nil {
		log.Printf("[WARN] can't load catalog, %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	specs, err := cat.Expand(req.Stores, req.Categories)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(specs) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "no jobs selected")
		return
	}
	for i := range specs {
		specs[i].Config = req.Config
	}
	if req.Mode != enums.BatchModeSequential {
		req.Mode = enums.BatchModeParallel
	}
	ids, err := s.Jobs.SubmitBatch(r.Context(), specs, req.Mode, req.Wait)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	status := http.StatusAccepted
	if req.Wait {
		status = http.StatusOK
	}
	s.writeJSON(w, status, rest.JSON{"job_ids": ids, "mode": req.Mode, "total": len(specs)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.Jobs.Stop(id) {
		s.writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"job_id": id, "stopped": true})
}

func (s *Server) handleStopAll(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, rest.JSON{"stopped": s.Jobs.StopAll()})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	res := s.Results.List(r.Context())
	q := r.URL.Query()
	if st, cat := q.Get("store"), q.Get("category"); st != "" || cat != "" {
		filtered := res[:0]
		for _, e := range res {
			if (st == "" || e.Store == st) && (cat == "" || e.Category == cat) {
				filtered = append(filtered, e)
			}
		}
		res = filtered
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	e, ok := s.Results.Get(r.Context(), r.PathValue("id"))
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "result not found")
		return
	}
	e.Items = nil
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleResultItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Results.Items(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, reconcile.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "result not found")
			return
		}
		log.Printf("[WARN] can't load items, %v", err)
		s.writeJSONError(w, http.StatusBadGateway, "failed to load items")
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"id": r.PathValue("id"), "items": items, "total": len(items)})
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	if n := s.Results.Delete(r.Context(), []string{r.PathValue("id")}, purge); n == 0 {
		s.writeJSONError(w, http.StatusNotFound, "result not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"deleted": 1})
}

func (s *Server) handleDeleteResults(w http.ResponseWriter, r *http.Request) {
	req := DeleteRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "ids required")
		return
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"deleted": s.Results.Delete(r.Context(), req.IDs, req.Purge)})
}

func (s *Server) handleClearResults(w http.ResponseWriter, r *http.Request) {
	purge, _ := strconv.ParseBool(r.URL.Query().Get("purge"))
	s.writeJSON(w, http.StatusOK, rest.JSON{"deleted": s.Results.Clear(r.Context(), purge)})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	rep := s.Results.Sync(r.Context())
	if s.OnSync != nil {
		s.OnSync(rep)
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Results.Stats(r.Context()))
}

// handleCatalog returns stores with their categories and modes, commands and env are not exposed
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	cat, err := s.Catalog.Load()
	if err != nil {
		log.Printf("[WARN] can't load catalog, %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	type storeInfo struct {
		Categories []string       `json:"categories"`
		Mode       enums.ExecMode `json:"mode"`
	}
	stores := make(map[string]storeInfo, len(cat.Stores))
	for name, sc := range cat.Stores {
		stores[name] = storeInfo{Categories: sc.Categories, Mode: sc.Mode}
	}
	s.writeJSON(w, http.StatusOK, rest.JSON{"stores": stores, "schedules": cat.Schedules,
		"max_concurrent_jobs": s.Catalog.MaxConcurrentJobs()})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, config.Schema())
}

// writeSubmitError maps submission errors to status codes
func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var cerr *scheduler.ConfigError
	switch {
	case errors.As(err, &cerr):
		s.writeJSONError(w, http.StatusBadRequest, cerr.Error())
	case errors.Is(err, config.ErrUnknownStore), errors.Is(err, config.ErrUnknownCategory), errors.Is(err, job.ErrInvalidConfig):
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[WARN] submission failed, %v", err)
		s.writeJSONError(w, http.StatusServiceUnavailable, "submission failed")
	}
}
