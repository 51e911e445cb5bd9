// Package reconcile keeps the result cache in line with result files on disk and in the remote store.
// Results unknown to the store are picked up with deterministic synthetic ids, deleted results are
// remembered by tombstones and never come back.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/google/uuid"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

// ErrNotFound returned for unknown result ids
var ErrNotFound = errors.New("result not found")

// SyntheticPrefix starts ids of results found by sync
const SyntheticPrefix = "sync_"

// Store persists results, tombstones and upload statuses
type Store interface {
	LoadResults() (map[string]store.ResultEntry, error)
	UpsertResult(entry store.ResultEntry) error
	DeleteResults(ids []string) (int, error)
	LoadTombstones() (map[string]bool, error)
	AddTombstones(keys ...string) error
	SetUploadStatus(store, category, filename string, status enums.UploadStatus, errMsg string) error
}

// Remote is the object store holding uploaded results
type Remote interface {
	List(ctx context.Context) ([]remote.Blob, error)
	Download(ctx context.Context, objPath string) ([]byte, error)
	Delete(ctx context.Context, objPath string) (bool, error)
	Prefix() string
}

// Catalog provides output directories of all crawlers
type Catalog interface {
	Load() (*config.Catalog, error)
}

// Activities drops finished jobs of deleted results
type Activities interface {
	Remove(id string) bool
}

// Report summarizes a sync pass
type Report struct {
	LocalAdded  int           `json:"local_added"`
	RemoteAdded int           `json:"remote_added"`
	Linked      int           `json:"linked"`
	Tombstoned  int           `json:"tombstoned"`
	Duplicates  int           `json:"duplicates"`
	Errors      int           `json:"errors"`
	Duration    time.Duration `json:"duration"`
}

func (r Report) String() string {
	return fmt.Sprintf("local +%d, remote +%d, linked %d, tombstoned %d, duplicates %d, errors %d in %v",
		r.LocalAdded, r.RemoteAdded, r.Linked, r.Tombstoned, r.Duplicates, r.Errors, r.Duration)
}

// Engine is a cache of results backed by the store. The first query runs a sync.
type Engine struct {
	Store      Store
	Catalog    Catalog
	Remote     Remote     // optional
	Activities Activities // optional

	loadOnce sync.Once
	syncOnce sync.Once
	syncMu   sync.Mutex // one sync at a time

	mu         sync.RWMutex
	results    map[string]store.ResultEntry
	tombstones map[string]bool
}

// New makes Engine, rmt may be nil if results are kept locally only
func New(st Store, cat Catalog, rmt Remote) *Engine {
	return &Engine{Store: st, Catalog: cat, Remote: rmt}
}

// load reads results and tombstones from the store once. Store failures leave the cache empty.
func (e *Engine) load() {
	e.loadOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.results = map[string]store.ResultEntry{}
		e.tombstones = map[string]bool{}
		if res, err := e.Store.LoadResults(); err == nil {
			for id, r := range res {
				if r.OutputFile != "" {
					r.OutputFile = abs(r.OutputFile)
				}
				e.results[id] = r
			}
		} else {
			log.Printf("[WARN] can't load results, %v", err)
		}
		if ts, err := e.Store.LoadTombstones(); err == nil {
			for k := range ts {
				e.tombstones[k] = true
				// markers of relative paths also match the resolved path
				if p, ok := strings.CutPrefix(k, store.FilePrefix); ok && p != "" && !filepath.IsAbs(p) {
					e.tombstones[store.FileKey(abs(p))] = true
				}
			}
		} else {
			log.Printf("[WARN] can't load tombstones, %v", err)
		}
		log.Printf("[DEBUG] loaded %d results and %d tombstones", len(e.results), len(e.tombstones))
	})
}

// ensureSynced runs the lazy sync on the first query
func (e *Engine) ensureSynced(ctx context.Context) {
	e.syncOnce.Do(func() {
		rep := e.Sync(ctx)
		log.Printf("[INFO] initial sync: %s", rep)
	})
}

// Record stores result of a completed job. Output file path is made absolute. A previous result owning
// the same local file or the same remote path is replaced, so a file picked up by sync before the job
// finished ends up under the job's id.
func (e *Engine) Record(entry store.ResultEntry) {
	e.load()
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry.OutputFile != "" {
		entry.OutputFile = abs(entry.OutputFile)
	}
	for id, r := range e.results {
		if id == entry.ID || !sameSource(r, entry) {
			continue
		}
		log.Printf("[INFO] result %s replaces %s", entry.ID, id)
		delete(e.results, id)
		if _, err := e.Store.DeleteResults([]string{id}); err != nil {
			log.Printf("[WARN] can't delete replaced result %s, %v", id, err)
		}
	}
	e.results[entry.ID] = entry

	var conflict error
	rpt := repeater.New(&strategy.FixedDelay{Repeats: 3, Delay: 50 * time.Millisecond})
	err := rpt.Do(context.Background(), func() error {
		err := e.Store.UpsertResult(entry)
		if errors.Is(err, store.ErrConflict) {
			conflict = err
			return nil
		}
		return err
	})
	switch {
	case conflict != nil:
		log.Printf("[WARN] result %s not persisted, %v", entry.ID, conflict)
	case err != nil:
		log.Printf("[WARN] can't persist result %s, kept in memory, %v", entry.ID, err)
	}
}

// List returns all results without items, newest first
func (e *Engine) List(ctx context.Context) []store.ResultEntry {
	e.load()
	e.ensureSynced(ctx)
	e.mu.RLock()
	res := make([]store.ResultEntry, 0, len(e.results))
	for _, r := range e.results {
		r.Items = nil
		res = append(res, r)
	}
	e.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CompletedAt.Equal(res[j].CompletedAt) {
			return res[i].CompletedAt.After(res[j].CompletedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// Get returns result by id, with items
func (e *Engine) Get(ctx context.Context, id string) (store.ResultEntry, bool) {
	e.load()
	e.ensureSynced(ctx)
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.results[id]
	return r, ok
}

// Items returns product records of the result. Items missing in the cache are read from the local
// file or downloaded from the remote store, and cached.
func (e *Engine) Items(ctx context.Context, id string) ([]json.RawMessage, error) {
	r, ok := e.Get(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(r.Items) > 0 || r.ItemCount == 0 && r.OutputFile == "" && r.RemotePath == "" {
		return r.Items, nil
	}

	var data []byte
	var err error
	switch {
	case r.OutputFile != "" && fileExists(r.OutputFile):
		data, err = os.ReadFile(r.OutputFile) //nolint:gosec // result file from the store
	case r.RemotePath != "" && e.Remote != nil:
		data, err = e.Remote.Download(ctx, r.RemotePath)
	default:
		return nil, fmt.Errorf("no source for items of %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("can't load items of %s: %w", id, err)
	}
	items := []json.RawMessage{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("bad items of %s: %w", id, err)
	}

	e.mu.Lock()
	if cur, ok := e.results[id]; ok {
		cur.Items, cur.ItemCount = items, len(items)
		e.results[id] = cur
		if err := e.Store.UpsertResult(cur); err != nil {
			log.Printf("[WARN] can't persist items of %s, %v", id, err)
		}
	}
	e.mu.Unlock()
	return items, nil
}

// Delete removes results and tombstones their ids and files, so sync never restores them.
// With purge the local file and the remote object are removed too. Returns number of deleted results.
func (e *Engine) Delete(ctx context.Context, ids []string, purge bool) int {
	e.load()
	e.mu.Lock()
	removed := make([]store.ResultEntry, 0, len(ids))
	keys := []string{}
	for _, id := range ids {
		keys = append(keys, id)
		e.tombstones[id] = true
		r, ok := e.results[id]
		if !ok {
			continue
		}
		for _, p := range []string{abs(r.OutputFile), r.RemotePath} {
			if p != "" {
				keys = append(keys, store.FileKey(p))
				e.tombstones[store.FileKey(p)] = true
			}
		}
		delete(e.results, id)
		removed = append(removed, r)
	}
	e.mu.Unlock()

	if err := e.Store.AddTombstones(keys...); err != nil {
		log.Printf("[WARN] can't persist tombstones, %v", err)
	}
	if _, err := e.Store.DeleteResults(ids); err != nil {
		log.Printf("[WARN] can't delete results from store, %v", err)
	}

	for _, r := range removed {
		if e.Activities != nil {
			e.Activities.Remove(r.ID)
		}
		if !purge {
			continue
		}
		if r.OutputFile != "" {
			if err := os.Remove(r.OutputFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Printf("[WARN] can't remove %s, %v", r.OutputFile, err)
			}
		}
		if r.RemotePath != "" && e.Remote != nil {
			if _, err := e.Remote.Delete(ctx, r.RemotePath); err != nil {
				log.Printf("[WARN] can't delete remote %s, %v", r.RemotePath, err)
			}
		}
	}
	log.Printf("[INFO] deleted %d results, purge %v", len(removed), purge)
	return len(removed)
}

// Clear deletes all results
func (e *Engine) Clear(ctx context.Context, purge bool) int {
	e.load()
	e.mu.RLock()
	ids := make([]string, 0, len(e.results))
	for id := range e.results {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	return e.Delete(ctx, ids, purge)
}

// tombstoned checks the id and all paths of the candidate, caller holds the lock
func (e *Engine) tombstoned(id string, paths ...string) bool {
	if e.tombstones[id] {
		return true
	}
	for _, p := range paths {
		if p != "" && e.tombstones[store.FileKey(p)] {
			return true
		}
	}
	return false
}

// SyntheticID makes stable id of a result found by sync from its file or object path
func SyntheticID(source string) string {
	return SyntheticPrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func itemCount(meta map[string]string) int {
	n, err := strconv.Atoi(meta["item_count"])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// sameSource checks if both results point to the same local file or remote object
func sameSource(a, b store.ResultEntry) bool {
	if a.OutputFile != "" && b.OutputFile != "" && abs(a.OutputFile) == abs(b.OutputFile) {
		return true
	}
	return a.RemotePath != "" && a.RemotePath == b.RemotePath
}

func abs(path string) string {
	if path == "" {
		return ""
	}
	if res, err := filepath.Abs(path); err == nil {
		return res
	}
	return path
}
