package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

type testCatalog struct {
	cat *config.Catalog
	err error
}

func (c testCatalog) Load() (*config.Catalog, error) { return c.cat, c.err }

type activitiesFunc func(id string) bool

func (f activitiesFunc) Remove(id string) bool { return f(id) }

type env struct {
	dir    string
	db     string
	store  *store.SQLiteStore
	remote *remote.Local
	cat    testCatalog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	res := &env{dir: dir, db: filepath.Join(dir, "results.db")}
	var err error
	res.store, err = store.NewSQLiteStore(res.db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.store.Close() })
	res.remote, err = remote.NewLocal(filepath.Join(dir, "bucket"), "crawl")
	require.NoError(t, err)
	res.cat = testCatalog{cat: &config.Catalog{OutputRoot: filepath.Join(dir, "out"),
		Stores: map[string]config.StoreConfig{"keells": {Command: []string{"x"}, Categories: []string{"vegetables", "fruits"}}}}}
	return res
}

func (e *env) writeResult(t *testing.T, category, name, body string, mtime time.Time) string {
	t.Helper()
	d := filepath.Join(e.dir, "out", "keells", category)
	require.NoError(t, os.MkdirAll(d, 0o750))
	p := filepath.Join(d, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
	return p
}

func TestEngine_SyncLocal(t *testing.T) {
	e := newEnv(t)
	ts := time.Now().Add(-time.Hour).Truncate(time.Second)
	p := e.writeResult(t, "vegetables", "a.json", `[{"name":"carrot"},{"name":"leek"}]`, ts)
	e.writeResult(t, "fruits", "notes.json", `{"not":"a list"}`, ts)

	eng := New(e.store, e.cat, nil)
	rep := eng.Sync(context.Background())
	assert.Equal(t, 1, rep.LocalAdded)
	assert.Equal(t, 0, rep.Errors)

	id := SyntheticID("file://" + p)
	r, ok := eng.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, "keells", r.Store)
	assert.Equal(t, "vegetables", r.Category)
	assert.Equal(t, 2, r.ItemCount)
	assert.Equal(t, p, r.OutputFile)
	assert.True(t, ts.Equal(r.CompletedAt))

	rep = eng.Sync(context.Background())
	assert.Equal(t, 0, rep.LocalAdded, "no duplicates on repeated sync")
	assert.Len(t, eng.List(context.Background()), 1)

	// fresh engine over the same db sees the same id
	eng2 := New(e.store, e.cat, nil)
	list := eng2.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Nil(t, list[0].Items, "list has no items")

	st, err := e.store.GetUploadStatus("keells", "vegetables", "a.json")
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusLocal, st.Status)
}

func TestEngine_DeleteNotResurrected(t *testing.T) {
	e := newEnv(t)
	p := e.writeResult(t, "vegetables", "a.json", `[{"name":"carrot"}]`, time.Now())

	var removed []string
	eng := New(e.store, e.cat, nil)
	eng.Activities = activitiesFunc(func(id string) bool { removed = append(removed, id); return true })
	list := eng.List(context.Background())
	require.Len(t, list, 1)

	assert.Equal(t, 1, eng.Delete(context.Background(), []string{list[0].ID, "unknown"}, false))
	assert.Equal(t, []string{list[0].ID}, removed)
	assert.FileExists(t, p, "file kept without purge")

	rep := eng.Sync(context.Background())
	assert.Equal(t, 0, rep.LocalAdded)
	assert.Equal(t, 1, rep.Tombstoned)
	assert.Empty(t, eng.List(context.Background()))

	eng2 := New(e.store, e.cat, nil)
	assert.Empty(t, eng2.List(context.Background()), "tombstones survive restart")
}

func TestEngine_DeletePurge(t *testing.T) {
	e := newEnv(t)
	p := e.writeResult(t, "vegetables", "a.json", `[{"name":"carrot"}]`, time.Now())
	blob, err := e.remote.Upload(context.Background(), p, "keells", "vegetables", map[string]string{"item_count": "1"})
	require.NoError(t, err)

	eng := New(e.store, e.cat, e.remote)
	eng.Record(store.ResultEntry{ID: "job1", Store: "keells", Category: "vegetables", ItemCount: 1,
		OutputFile: p, RemotePath: blob.Path, RemoteURL: blob.URL, CompletedAt: time.Now()})

	assert.Equal(t, 1, eng.Delete(context.Background(), []string{"job1"}, true))
	assert.NoFileExists(t, p)
	blobs, err := e.remote.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blobs)

	ts, err := e.store.LoadTombstones()
	require.NoError(t, err)
	assert.True(t, ts["job1"])
	assert.True(t, ts[store.FileKey(p)])
	assert.True(t, ts[store.FileKey(blob.Path)])
}

func TestEngine_SyncRemoteOnly(t *testing.T) {
	e := newEnv(t)
	src := filepath.Join(t.TempDir(), "b.json")
	require.NoError(t, os.WriteFile(src, []byte(`[{"n":1},{"n":2},{"n":3}]`), 0o600))
	blob, err := e.remote.Upload(context.Background(), src, "keells", "fruits", map[string]string{"item_count": "3"})
	require.NoError(t, err)

	eng := New(e.store, e.cat, e.remote)
	rep := eng.Sync(context.Background())
	assert.Equal(t, 1, rep.RemoteAdded)

	id := SyntheticID("remote://" + blob.Path)
	r, ok := eng.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, "fruits", r.Category)
	assert.Equal(t, 3, r.ItemCount)
	assert.Empty(t, r.OutputFile)
	assert.Empty(t, r.Items)

	items, err := eng.Items(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.JSONEq(t, `{"n":2}`, string(items[1]))

	res, err := e.store.LoadResults()
	require.NoError(t, err)
	assert.Len(t, res[id].Items, 3, "downloaded items cached in store")

	st, err := e.store.GetUploadStatus("keells", "fruits", "b.json")
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusCloudOnly, st.Status)
}

func TestEngine_SyncLinksLocalAndRemote(t *testing.T) {
	e := newEnv(t)
	p := e.writeResult(t, "vegetables", "a.json", `[{"name":"carrot"}]`, time.Now().Add(-time.Minute))
	blob, err := e.remote.Upload(context.Background(), p, "keells", "vegetables", nil)
	require.NoError(t, err)

	eng := New(e.store, e.cat, e.remote)
	rep := eng.Sync(context.Background())
	assert.Equal(t, 1, rep.LocalAdded)
	assert.Equal(t, 0, rep.RemoteAdded)
	assert.Equal(t, 1, rep.Linked)

	list := eng.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, p, list[0].OutputFile)
	assert.Equal(t, blob.Path, list[0].RemotePath)

	rep = eng.Sync(context.Background())
	assert.Equal(t, Report{Duration: rep.Duration}, rep, "nothing new on second pass")

	st, err := e.store.GetUploadStatus("keells", "vegetables", "a.json")
	require.NoError(t, err)
	assert.Equal(t, enums.UploadStatusBoth, st.Status)
}

func TestEngine_RecordReplacesSameRemotePath(t *testing.T) {
	e := newEnv(t)
	eng := New(e.store, e.cat, nil)
	now := time.Now()
	eng.Record(store.ResultEntry{ID: "old", Store: "keells", Category: "fruits", RemotePath: "crawl/keells/fruits/a.json",
		ItemCount: 1, CompletedAt: now.Add(-time.Hour)})
	eng.Record(store.ResultEntry{ID: "new", Store: "keells", Category: "fruits", RemotePath: "crawl/keells/fruits/a.json",
		ItemCount: 5, CompletedAt: now})
	eng.Record(store.ResultEntry{ID: "other", Store: "keells", Category: "fruits", ItemCount: 2, CompletedAt: now.Add(-2 * time.Hour)})

	list := eng.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID, "newest first")
	assert.Equal(t, "other", list[1].ID)

	res, err := e.store.LoadResults()
	require.NoError(t, err)
	assert.NotContains(t, res, "old")
	assert.Equal(t, 5, res["new"].ItemCount)
}

func TestEngine_DeleteRelativeOutputRoot(t *testing.T) {
	e := newEnv(t)
	t.Chdir(e.dir)
	e.cat.cat.OutputRoot = "out"
	e.writeResult(t, "vegetables", "keells_vegetables.json", `[{"name":"carrot"}]`, time.Now())
	e.writeResult(t, "fruits", "legacy.json", `[{"name":"apple"}]`, time.Now())
	require.NoError(t, e.store.AddTombstones(store.FileKey(filepath.Join("out", "keells", "fruits", "legacy.json"))))

	eng := New(e.store, e.cat, nil)
	rel := filepath.Join("out", "keells", "vegetables", "keells_vegetables.json")
	eng.Record(store.ResultEntry{ID: "keells_vegetables_1", Store: "keells", Category: "vegetables",
		OutputFile: rel, ItemCount: 1, CompletedAt: time.Now()})
	r, ok := eng.Get(context.Background(), "keells_vegetables_1")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(e.dir, rel), r.OutputFile, "stored with absolute path")

	assert.Equal(t, 1, eng.Delete(context.Background(), []string{"keells_vegetables_1"}, false))
	rep := eng.Sync(context.Background())
	assert.Equal(t, 0, rep.LocalAdded)
	assert.Equal(t, 2, rep.Tombstoned, "deleted result and legacy marker both skipped")
	assert.Empty(t, eng.List(context.Background()))
}

func TestEngine_RecordReplacesSyncedFile(t *testing.T) {
	e := newEnv(t)
	p := e.writeResult(t, "vegetables", "keells_vegetables.json", `[{"name":"carrot"},{"name":"leek"}]`, time.Now())

	eng := New(e.store, e.cat, nil)
	rep := eng.Sync(context.Background())
	require.Equal(t, 1, rep.LocalAdded)

	eng.Record(store.ResultEntry{ID: "keells_vegetables_1", Store: "keells", Category: "vegetables",
		OutputFile: p, ItemCount: 2, CompletedAt: time.Now()})
	list := eng.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "keells_vegetables_1", list[0].ID)

	res, err := e.store.LoadResults()
	require.NoError(t, err)
	assert.NotContains(t, res, SyntheticID("file://"+p))

	rep = eng.Sync(context.Background())
	assert.Equal(t, 0, rep.LocalAdded)
	assert.Len(t, eng.List(context.Background()), 1)
}

func TestEngine_ItemsErrors(t *testing.T) {
	e := newEnv(t)
	eng := New(e.store, e.cat, nil)
	_, err := eng.Items(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	eng.Record(store.ResultEntry{ID: "gone", Store: "keells", Category: "fruits", ItemCount: 4,
		OutputFile: filepath.Join(e.dir, "nope.json")})
	_, err = eng.Items(context.Background(), "gone")
	require.Error(t, err)

	eng.Record(store.ResultEntry{ID: "empty", Store: "keells", Category: "fruits"})
	items, err := eng.Items(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEngine_Clear(t *testing.T) {
	e := newEnv(t)
	e.writeResult(t, "vegetables", "a.json", `[1]`, time.Now().Add(-time.Minute))
	e.writeResult(t, "fruits", "b.json", `[1,2]`, time.Now())
	eng := New(e.store, e.cat, nil)
	require.Len(t, eng.List(context.Background()), 2)

	assert.Equal(t, 2, eng.Clear(context.Background(), false))
	assert.Empty(t, eng.List(context.Background()))
	eng.Sync(context.Background())
	assert.Empty(t, eng.List(context.Background()))
}

type brokenStore struct{}

func (brokenStore) LoadResults() (map[string]store.ResultEntry, error) {
	return nil, errors.New("db down")
}
func (brokenStore) UpsertResult(store.ResultEntry) error     { return errors.New("db down") }
func (brokenStore) DeleteResults([]string) (int, error)      { return 0, errors.New("db down") }
func (brokenStore) LoadTombstones() (map[string]bool, error) { return nil, errors.New("db down") }
func (brokenStore) AddTombstones(...string) error            { return errors.New("db down") }
func (brokenStore) SetUploadStatus(string, string, string, enums.UploadStatus, string) error {
	return errors.New("db down")
}

func TestEngine_BrokenStore(t *testing.T) {
	e := newEnv(t)
	e.writeResult(t, "vegetables", "a.json", `[{"name":"carrot"}]`, time.Now())
	eng := New(brokenStore{}, e.cat, nil)

	rep := eng.Sync(context.Background())
	assert.Equal(t, 1, rep.LocalAdded)
	assert.Equal(t, 1, rep.Errors)

	list := eng.List(context.Background())
	require.Len(t, list, 1, "kept in memory")
	assert.Equal(t, 1, eng.Delete(context.Background(), []string{list[0].ID}, false))
	eng.Sync(context.Background())
	assert.Empty(t, eng.List(context.Background()), "tombstone kept in memory")
}

type flakyStore struct {
	*store.SQLiteStore
	fails int
}

func (f *flakyStore) UpsertResult(entry store.ResultEntry) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("database is locked")
	}
	return f.SQLiteStore.UpsertResult(entry)
}

func TestEngine_RecordRetries(t *testing.T) {
	e := newEnv(t)
	fs := &flakyStore{SQLiteStore: e.store, fails: 2}
	eng := New(fs, e.cat, nil)
	eng.Record(store.ResultEntry{ID: "job1", Store: "keells", Category: "fruits", ItemCount: 3, CompletedAt: time.Now()})
	assert.Equal(t, 0, fs.fails)

	res, err := e.store.LoadResults()
	require.NoError(t, err)
	require.Contains(t, res, "job1", "persisted after retries")
	assert.Equal(t, 3, res["job1"].ItemCount)
}

func TestEngine_CatalogFailure(t *testing.T) {
	e := newEnv(t)
	eng := New(e.store, testCatalog{err: errors.New("bad yaml")}, nil)
	rep := eng.Sync(context.Background())
	assert.Equal(t, 1, rep.Errors)
	assert.Empty(t, eng.List(context.Background()))
}

func TestEngine_Stats(t *testing.T) {
	e := newEnv(t)
	p := e.writeResult(t, "vegetables", "a.json", `[{"n":1},{"n":2}]`, time.Now().Add(-time.Minute))
	_, err := e.remote.Upload(context.Background(), p, "keells", "vegetables", nil)
	require.NoError(t, err)
	e.writeResult(t, "fruits", "b.json", `[{"n":1}]`, time.Now())

	eng := New(e.store, e.cat, e.remote)
	st := eng.Stats(context.Background())
	assert.Equal(t, 2, st.Results)
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, 1, st.Both)
	assert.Equal(t, 1, st.LocalOnly)
	assert.Equal(t, 0, st.RemoteOnly)
	assert.Positive(t, st.LocalBytes)
	assert.Positive(t, st.RemoteBytes)
	assert.Positive(t, st.DiskFreeBytes)
}

func TestSyntheticID(t *testing.T) {
	a := SyntheticID("file:///out/a.json")
	assert.Equal(t, a, SyntheticID("file:///out/a.json"))
	assert.NotEqual(t, a, SyntheticID("remote://crawl/a.json"))
	assert.Regexp(t, `^sync_[0-9a-f-]{36}$`, a)

	raw, err := json.Marshal(Report{LocalAdded: 1})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"local_added":1`)
}
