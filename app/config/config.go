// Package config loads the crawler catalog: known stores, their categories and crawler commands,
// the cross-process concurrency limit and scheduled crawls. The file is re-read on demand,
// so edits apply without restart.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/conditions"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
)

//go:generate go run ./internal/schema ../../catalog-schema.json

// DefaultMaxConcurrentJobs used when the catalog doesn't set the limit or can't be read
const DefaultMaxConcurrentJobs = 3

// errors returned for unknown catalog entries
var (
	ErrUnknownStore    = errors.New("unknown store")
	ErrUnknownCategory = errors.New("unknown category")
)

// Catalog is the parsed catalog file
type Catalog struct {
	MaxConcurrentJobs int                    `yaml:"max_concurrent_jobs" json:"max_concurrent_jobs,omitempty" jsonschema:"minimum=1,description=limit of jobs dispatched to the watcher"`
	OutputRoot        string                 `yaml:"output_root" json:"output_root,omitempty" jsonschema:"description=root of crawler output files"`
	Stores            map[string]StoreConfig `yaml:"stores" json:"stores" jsonschema:"required"`
	Schedules         []Schedule             `yaml:"schedules" json:"schedules,omitempty"`
	Admission         conditions.Config      `yaml:"admission" json:"admission,omitempty"`
}

// StoreConfig defines how crawlers of a single store run.
// Command and OutputDir may use {store} and {category} placeholders.
type StoreConfig struct {
	Command    []string          `yaml:"command" json:"command" jsonschema:"required,minItems=1"`
	Categories []string          `yaml:"categories" json:"categories" jsonschema:"required,minItems=1"`
	Env        map[string]string `yaml:"env" json:"env,omitempty"`
	Mode       enums.ExecMode    `yaml:"mode" json:"mode,omitempty" jsonschema:"enum=local,enum=queue"`
	OutputDir  string            `yaml:"output_dir" json:"output_dir,omitempty"`
}

// Schedule is a crawl batch started by cron spec. Empty stores means all stores,
// empty categories means all categories of selected stores.
type Schedule struct {
	Spec       string          `yaml:"spec" json:"spec" jsonschema:"required"`
	Stores     []string        `yaml:"stores" json:"stores,omitempty"`
	Categories []string        `yaml:"categories" json:"categories,omitempty"`
	Mode       enums.BatchMode `yaml:"mode" json:"mode,omitempty" jsonschema:"enum=parallel,enum=sequential"`
	Job        job.Config      `yaml:"job" json:"job,omitempty"`
}

// Validate checks catalog consistency
func (c *Catalog) Validate() error {
	if len(c.Stores) == 0 {
		return errors.New("at least one store is required")
	}
	if c.MaxConcurrentJobs < 0 {
		return fmt.Errorf("max_concurrent_jobs must not be negative, got %d", c.MaxConcurrentJobs)
	}
	for name, st := range c.Stores {
		if len(st.Command) == 0 {
			return fmt.Errorf("store %s: command is required", name)
		}
		if len(st.Categories) == 0 {
			return fmt.Errorf("store %s: at least one category is required", name)
		}
	}
	for i, s := range c.Schedules {
		if s.Spec == "" {
			return fmt.Errorf("schedule %d: spec is required", i+1)
		}
		if _, err := c.Expand(s.Stores, s.Categories); err != nil {
			return fmt.Errorf("schedule %d: %w", i+1, err)
		}
		if err := s.Job.Validate(); err != nil {
			return fmt.Errorf("schedule %d: %w", i+1, err)
		}
	}
	return nil
}

// Check verifies store and category are known
func (c *Catalog) Check(store, category string) error {
	st, ok := c.Stores[store]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStore, store)
	}
	if !slices.Contains(st.Categories, category) {
		return fmt.Errorf("%w: %q in store %q", ErrUnknownCategory, category, store)
	}
	return nil
}

// Command returns crawler command line for the store and category
func (c *Catalog) Command(store, category string) ([]string, error) {
	if err := c.Check(store, category); err != nil {
		return nil, err
	}
	cmd := c.Stores[store].Command
	res := make([]string, len(cmd))
	for i, arg := range cmd {
		res[i] = expand(arg, store, category)
	}
	return res, nil
}

// Env returns extra environment of the store crawler
func (c *Catalog) Env(store string) map[string]string {
	return c.Stores[store].Env
}

// ExecMode returns where crawlers of the store run
func (c *Catalog) ExecMode(store string) enums.ExecMode {
	return c.Stores[store].Mode
}

// OutputDir returns the directory where crawler of the store and category writes result files
func (c *Catalog) OutputDir(store, category string) string {
	if dir := c.Stores[store].OutputDir; dir != "" {
		return expand(dir, store, category)
	}
	return filepath.Join(c.OutputRoot, store, category)
}

// Expand returns job specs for all catalog combinations of the given stores and categories.
// Empty stores selects all stores, empty categories selects every category of the selected stores.
// Result is sorted by store and category.
func (c *Catalog) Expand(stores, categories []string) ([]job.Spec, error) {
	stores = slices.Clone(stores)
	if len(stores) == 0 {
		for name := range c.Stores {
			stores = append(stores, name)
		}
	}
	sort.Strings(stores)

	res := []job.Spec{}
	for _, store := range stores {
		st, ok := c.Stores[store]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStore, store)
		}
		for _, cat := range st.Categories {
			if len(categories) > 0 && !slices.Contains(categories, cat) {
				continue
			}
			res = append(res, job.Spec{Store: store, Category: cat})
		}
	}
	if len(res) == 0 && len(categories) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, strings.Join(categories, ","))
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Store != res[j].Store {
			return res[i].Store < res[j].Store
		}
		return res[i].Category < res[j].Category
	})
	return res, nil
}

func expand(s, store, category string) string {
	return strings.NewReplacer("{store}", store, "{category}", category).Replace(s)
}

// File is a catalog yaml file, thread safe
type File struct {
	path        string
	updInterval time.Duration

	mu       sync.Mutex
	lastGood *Catalog
}

// New makes File for path, not reading it yet
func New(path string, updInterval time.Duration) *File {
	log.Printf("[INFO] catalog file %s, check updates every %v", path, updInterval)
	return &File{path: path, updInterval: updInterval}
}

func (f *File) String() string { return f.path }

// Load reads and validates the catalog file
func (f *File) Load() (*Catalog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("can't read catalog %s: %w", f.path, err)
	}
	res := &Catalog{}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("can't parse catalog %s: %w", f.path, err)
	}
	if res.OutputRoot == "" {
		res.OutputRoot = "output"
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", f.path, err)
	}
	f.mu.Lock()
	f.lastGood = res
	f.mu.Unlock()
	return res, nil
}

// MaxConcurrentJobs reads the limit from the file on every call. If the file can't be read
// the last successfully loaded value is used.
func (f *File) MaxConcurrentJobs() int {
	c, err := f.Load()
	if err != nil {
		log.Printf("[WARN] %v", err)
		f.mu.Lock()
		c = f.lastGood
		f.mu.Unlock()
	}
	if c == nil || c.MaxConcurrentJobs <= 0 {
		return DefaultMaxConcurrentJobs
	}
	return c.MaxConcurrentJobs
}

// Changes gets updates channel. Each time the catalog file modified it gets parsed and sent to the channel.
// Update checked periodically and postponed for short time to skip intermediate saves.
func (f *File) Changes(ctx context.Context) (<-chan *Catalog, error) {
	ch := make(chan *Catalog)

	mtime := func() (time.Time, error) {
		st, err := os.Stat(f.path)
		if err != nil {
			return time.Time{}, fmt.Errorf("can't load catalog file %s: %w", f.path, err)
		}
		return st.ModTime(), nil
	}

	lastMtime, err := mtime()
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(f.updInterval)
	go func() {
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m, err := mtime()
				if err != nil {
					log.Printf("[WARN] can't get info about %s, %v", f.path, err)
					continue
				}
				// change should be at least half of interval old to skip intermediate saves
				if m.Equal(lastMtime) || time.Since(m) < f.updInterval/2 {
					continue
				}
				lastMtime = m
				c, err := f.Load()
				if err != nil {
					log.Printf("[WARN] can't reload catalog, %v", err)
					continue
				}
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Schema returns json schema of the catalog file
func Schema() *jsonschema.Schema {
	schema := jsonschema.Reflect(&Catalog{})
	schema.Title = "Crawler catalog"
	schema.Description = "Schema for crawler catalog yaml file"
	return schema
}
