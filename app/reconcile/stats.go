package reconcile

import (
	"context"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/conditions"
)

// Stats is storage usage of results
type Stats struct {
	Results         int     `json:"results"`
	Items           int     `json:"items"`
	LocalOnly       int     `json:"local_only"`
	RemoteOnly      int     `json:"remote_only"`
	Both            int     `json:"both"`
	LocalBytes      int64   `json:"local_bytes"`
	RemoteBytes     int64   `json:"remote_bytes"`
	DiskUsedPercent float64 `json:"disk_used_percent"`
	DiskFreeBytes   uint64  `json:"disk_free_bytes"`
}

// Stats returns result counts and sizes, plus usage of the disk holding the output root
func (e *Engine) Stats(ctx context.Context) Stats {
	e.load()
	e.ensureSynced(ctx)

	res := Stats{}
	e.mu.RLock()
	for _, r := range e.results {
		res.Results++
		res.Items += r.ItemCount
		local := r.OutputFile != "" && fileExists(r.OutputFile)
		switch {
		case local && r.RemotePath != "":
			res.Both++
		case local:
			res.LocalOnly++
		case r.RemotePath != "":
			res.RemoteOnly++
		}
		if local {
			res.LocalBytes += r.FileSize
		}
		if r.RemotePath != "" {
			res.RemoteBytes += r.FileSize
		}
	}
	e.mu.RUnlock()

	root := "."
	if cat, err := e.Catalog.Load(); err == nil && cat.OutputRoot != "" {
		root = cat.OutputRoot
	}
	used, free, err := conditions.DiskUsage(root)
	if err != nil {
		log.Printf("[DEBUG] can't get disk usage of %s, %v", root, err)
		return res
	}
	res.DiskUsedPercent, res.DiskFreeBytes = used, free
	return res
}
