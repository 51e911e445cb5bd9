package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

// Sync picks up result files on disk and in the remote store which are not known yet.
// Local files are matched by path, remote objects by object path. Tombstoned candidates are skipped,
// the first entry claiming a path wins. Sync never fails, problems are logged and counted.
func (e *Engine) Sync(ctx context.Context) Report {
	e.load()
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	st := time.Now()
	rep := Report{}
	e.syncLocal(&rep)
	if e.Remote != nil && ctx.Err() == nil {
		e.syncRemote(ctx, &rep)
	}
	e.refreshUploadStatus()
	rep.Duration = time.Since(st)
	log.Printf("[DEBUG] sync done: %s", rep)
	return rep
}

type localFile struct {
	store, category, path string
	info                  os.FileInfo
}

// syncLocal scans output dirs of all catalog crawlers
func (e *Engine) syncLocal(rep *Report) {
	cat, err := e.Catalog.Load()
	if err != nil {
		log.Printf("[WARN] sync can't load catalog, local scan skipped, %v", err)
		rep.Errors++
		return
	}

	files := []localFile{}
	for storeName, sc := range cat.Stores {
		for _, category := range sc.Categories {
			dir := cat.OutputDir(storeName, category)
			matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
			if err != nil {
				rep.Errors++
				continue
			}
			for _, m := range matches {
				fi, err := os.Stat(m)
				if err != nil || fi.IsDir() {
					continue
				}
				files = append(files, localFile{store: storeName, category: category, path: abs(m), info: fi})
			}
		}
	}
	// oldest first, so the earliest file claims a duplicate
	sort.Slice(files, func(i, j int) bool {
		if !files[i].info.ModTime().Equal(files[j].info.ModTime()) {
			return files[i].info.ModTime().Before(files[j].info.ModTime())
		}
		return files[i].path < files[j].path
	})

	e.mu.RLock()
	known := make(map[string]bool, len(e.results))
	for _, r := range e.results {
		if r.OutputFile != "" {
			known[abs(r.OutputFile)] = true
		}
	}
	e.mu.RUnlock()

	for _, f := range files {
		if known[f.path] {
			continue
		}
		id := SyntheticID("file://" + f.path)
		e.mu.RLock()
		skip := e.tombstoned(id, f.path)
		_, exists := e.results[id]
		e.mu.RUnlock()
		if skip {
			rep.Tombstoned++
			continue
		}
		if exists {
			continue
		}

		data, err := os.ReadFile(f.path) //nolint:gosec // file from crawler output dir
		if err != nil {
			log.Printf("[WARN] sync can't read %s, %v", f.path, err)
			rep.Errors++
			continue
		}
		items := []json.RawMessage{}
		if err := json.Unmarshal(data, &items); err != nil {
			log.Printf("[DEBUG] sync skips %s, not a result file", f.path)
			continue
		}
		entry := store.ResultEntry{ID: id, Store: f.store, Category: f.category, Items: items, ItemCount: len(items),
			OutputFile: f.path, CompletedAt: f.info.ModTime(), FileSize: f.info.Size(), FileModifiedAt: f.info.ModTime()}
		if e.add(entry, rep) {
			known[f.path] = true
			rep.LocalAdded++
		}
	}
}

// syncRemote scans the remote store. An object for a result known only locally is linked to it.
func (e *Engine) syncRemote(ctx context.Context, rep *Report) {
	blobs, err := e.Remote.List(ctx)
	if err != nil {
		log.Printf("[WARN] sync can't list remote store, %v", err)
		rep.Errors++
		return
	}
	sort.Slice(blobs, func(i, j int) bool {
		if !blobs[i].Updated.Equal(blobs[j].Updated) {
			return blobs[i].Updated.Before(blobs[j].Updated)
		}
		return blobs[i].Path < blobs[j].Path
	})

	for _, b := range blobs {
		storeName, category, filename, err := remote.SplitPath(e.Remote.Prefix(), b.Path)
		if err != nil {
			log.Printf("[DEBUG] sync skips remote %s, %v", b.Path, err)
			continue
		}

		e.mu.Lock()
		var owner, localOnly string
		for id, r := range e.results {
			if r.RemotePath == b.Path {
				owner = id
				break
			}
			if r.RemotePath == "" && r.Store == storeName && r.Category == category &&
				r.OutputFile != "" && filepath.Base(r.OutputFile) == filename {
				localOnly = id
			}
		}
		switch {
		case owner != "":
			e.mu.Unlock()
			continue
		case localOnly != "":
			r := e.results[localOnly]
			r.RemotePath, r.RemoteURL = b.Path, b.URL
			e.results[localOnly] = r
			e.mu.Unlock()
			if err := e.Store.UpsertResult(r); err != nil {
				log.Printf("[WARN] can't persist link of %s, %v", r.ID, err)
			}
			rep.Linked++
			continue
		}
		id := SyntheticID("remote://" + b.Path)
		skip := e.tombstoned(id, b.Path)
		e.mu.Unlock()
		if skip {
			rep.Tombstoned++
			continue
		}

		completed := b.Updated
		if completed.IsZero() {
			completed = time.Now()
		}
		entry := store.ResultEntry{ID: id, Store: storeName, Category: category, ItemCount: itemCount(b.Metadata),
			RemoteURL: b.URL, RemotePath: b.Path, CompletedAt: completed, FileSize: b.Size, FileModifiedAt: b.Updated}
		if e.add(entry, rep) {
			rep.RemoteAdded++
		}
	}
}

// add stores a found result, returns false for duplicates and unsaved entries
func (e *Engine) add(entry store.ResultEntry, rep *Report) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.results[entry.ID]; ok {
		rep.Duplicates++
		return false
	}
	if err := e.Store.UpsertResult(entry); err != nil {
		if errors.Is(err, store.ErrConflict) {
			rep.Duplicates++
			return false
		}
		log.Printf("[WARN] can't persist synced result %s, kept in memory, %v", entry.ID, err)
		rep.Errors++
	}
	e.results[entry.ID] = entry
	return true
}

// refreshUploadStatus records where each result file lives
func (e *Engine) refreshUploadStatus() {
	e.mu.RLock()
	results := make([]store.ResultEntry, 0, len(e.results))
	for _, r := range e.results {
		results = append(results, r)
	}
	e.mu.RUnlock()

	for _, r := range results {
		local := r.OutputFile != "" && fileExists(r.OutputFile)
		var filename string
		var status enums.UploadStatus
		switch {
		case local && r.RemotePath != "":
			filename, status = filepath.Base(r.OutputFile), enums.UploadStatusBoth
		case local:
			filename, status = filepath.Base(r.OutputFile), enums.UploadStatusLocal
		case r.RemotePath != "":
			filename, status = path.Base(r.RemotePath), enums.UploadStatusCloudOnly
		default:
			continue
		}
		if err := e.Store.SetUploadStatus(r.Store, r.Category, filename, status, ""); err != nil {
			log.Printf("[WARN] can't set upload status of %s, %v", filename, err)
		}
	}
}
