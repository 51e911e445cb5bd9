package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
)

const legacyMigratedKey = "legacy_json_migrated"

// legacy json file names
const (
	legacyResultsFile    = "crawl_results.json"
	legacyClearedResults = "cleared_results.json"
	legacyClearedActs    = "cleared_activities.json"
	legacyUploadStatus   = "upload_status.json"
)

type legacyResult struct {
	Store       string            `json:"store"`
	Category    string            `json:"category"`
	Items       []json.RawMessage `json:"items"`
	ItemCount   int               `json:"item_count"`
	OutputFile  string            `json:"output_file"`
	CloudURL    string            `json:"cloud_url"`
	CloudPath   string            `json:"cloud_path"`
	CompletedAt string            `json:"completed_at"`
	FileSize    int64             `json:"file_size"`
}

type legacyUpload struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// MigrateLegacy imports json files of the previous storage format from dir, only once per database.
// Returns true if the import happened on this call. Missing and unreadable files are skipped.
func (s *SQLiteStore) MigrateLegacy(dir string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flag string
	err := s.db.Get(&flag, `SELECT value FROM metadata WHERE key = ?`, legacyMigratedKey)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to read migration flag: %w", err)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := map[string]legacyResult{}
	if err := readLegacy(filepath.Join(dir, legacyResultsFile), &results); err != nil {
		log.Printf("[WARN] skip legacy results, %v", err)
		results = map[string]legacyResult{}
	}
	for id, r := range results {
		entry := ResultEntry{ID: id, Store: r.Store, Category: r.Category, Items: r.Items, ItemCount: r.ItemCount,
			OutputFile: r.OutputFile, RemoteURL: r.CloudURL, RemotePath: r.CloudPath, FileSize: r.FileSize,
			CompletedAt: parseLegacyTime(r.CompletedAt)}
		if entry.ItemCount == 0 {
			entry.ItemCount = len(entry.Items)
		}
		if err := upsertTx(tx, entry); err != nil {
			if errors.Is(err, ErrConflict) {
				log.Printf("[WARN] skip legacy result %s: %v", id, err)
				continue
			}
			return false, err
		}
	}

	for file, kind := range map[string]string{legacyClearedResults: "result", legacyClearedActs: "activity"} {
		keys := []string{}
		if err := readLegacy(filepath.Join(dir, file), &keys); err != nil {
			log.Printf("[WARN] skip legacy %s tombstones, %v", kind, err)
			continue
		}
		for _, k := range keys {
			keyKind := kind
			if strings.HasPrefix(k, FilePrefix) {
				keyKind = "file"
			}
			if err := addTombstoneTx(tx, k, keyKind); err != nil {
				return false, err
			}
		}
	}

	uploads := map[string]legacyUpload{}
	if err := readLegacy(filepath.Join(dir, legacyUploadStatus), &uploads); err != nil {
		log.Printf("[WARN] skip legacy upload statuses, %v", err)
		uploads = map[string]legacyUpload{}
	}
	for key, u := range uploads {
		if err := migrateUpload(tx, key, u); err != nil {
			log.Printf("[WARN] skip legacy upload status %s: %v", key, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)`, legacyMigratedKey,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return false, fmt.Errorf("failed to set migration flag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Printf("[INFO] migrated legacy json from %s: %d results, %d upload statuses", dir, len(results), len(uploads))
	return true, nil
}

func migrateUpload(tx *sqlx.Tx, key string, u legacyUpload) error {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 {
		return fmt.Errorf("bad key %q, expected store/category/filename", key)
	}
	status, err := enums.ParseUploadStatus(u.Status)
	if err != nil {
		return err
	}
	return setUploadStatusTx(tx, UploadRecord{Store: parts[0], Category: parts[1], Filename: parts[2],
		Status: status, Error: u.Error, UpdatedAt: time.Now().Unix()})
}

func readLegacy(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path built from configured dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func parseLegacyTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
