// Package store provides durable storage of crawl results, tombstones and upload statuses on top of SQLite.
//
// All calls serialize through a single connection guarded by a mutex, every write runs in a transaction.
// Callers treat store errors as non-fatal and keep working from memory.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
)

// ErrConflict returned when a result with the same remote path is already stored under another id
var ErrConflict = errors.New("result conflict")

// FilePrefix marks tombstone keys of files (local paths and remote object paths)
const FilePrefix = "file:"

// ResultEntry is a completed crawl result
type ResultEntry struct {
	ID             string            `json:"id"`
	Store          string            `json:"store"`
	Category       string            `json:"category"`
	Items          []json.RawMessage `json:"items,omitempty"`
	ItemCount      int               `json:"item_count"`
	OutputFile     string            `json:"output_file,omitempty"`
	RemoteURL      string            `json:"remote_url,omitempty"`
	RemotePath     string            `json:"remote_path,omitempty"`
	CompletedAt    time.Time         `json:"completed_at"`
	FileSize       int64             `json:"file_size"`
	FileModifiedAt time.Time         `json:"file_modified_at"`
}

// UploadRecord is upload state of a single result file
type UploadRecord struct {
	Store     string             `json:"store" db:"store"`
	Category  string             `json:"category" db:"category"`
	Filename  string             `json:"filename" db:"filename"`
	Status    enums.UploadStatus `json:"status" db:"status"`
	Error     string             `json:"error,omitempty" db:"error"`
	UpdatedAt int64              `json:"updated_at" db:"updated_at"`
}

// FileKey makes tombstone key for a file path
func FileKey(path string) string { return FilePrefix + path }

type resultRow struct {
	ID             string `db:"id"`
	Store          string `db:"store"`
	Category       string `db:"category"`
	Items          string `db:"items"`
	ItemCount      int    `db:"item_count"`
	OutputFile     string `db:"output_file"`
	RemoteURL      string `db:"remote_url"`
	RemotePath     string `db:"remote_path"`
	CompletedAt    int64  `db:"completed_at"`
	FileSize       int64  `db:"file_size"`
	FileModifiedAt int64  `db:"file_modified_at"`
}

// SQLiteStore implements result persistence using SQLite
type SQLiteStore struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteStore opens the database and creates schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// enable WAL mode for better concurrency with readers from other processes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	res := &SQLiteStore{db: db}
	if err := res.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			store TEXT NOT NULL,
			category TEXT NOT NULL,
			items TEXT NOT NULL DEFAULT '[]',
			item_count INTEGER NOT NULL DEFAULT 0,
			output_file TEXT NOT NULL DEFAULT '',
			remote_url TEXT NOT NULL DEFAULT '',
			remote_path TEXT NOT NULL DEFAULT '',
			completed_at INTEGER NOT NULL DEFAULT 0,
			file_size INTEGER NOT NULL DEFAULT 0,
			file_modified_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_remote_path ON results(remote_path)`,
		`CREATE TABLE IF NOT EXISTS tombstones (
			key TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS upload_status (
			store TEXT NOT NULL,
			category TEXT NOT NULL,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (store, category, filename)
		)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// LoadResults returns all stored results keyed by id
func (s *SQLiteStore) LoadResults() (map[string]ResultEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []resultRow{}
	if err := s.db.Select(&rows, `SELECT * FROM results`); err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}

	res := make(map[string]ResultEntry, len(rows))
	for _, r := range rows {
		entry := ResultEntry{
			ID:         r.ID,
			Store:      r.Store,
			Category:   r.Category,
			ItemCount:  r.ItemCount,
			OutputFile: r.OutputFile,
			RemoteURL:  r.RemoteURL,
			RemotePath: r.RemotePath,
			FileSize:   r.FileSize,
		}
		if err := json.Unmarshal([]byte(r.Items), &entry.Items); err != nil {
			log.Printf("[WARN] invalid items of result %s: %v", r.ID, err)
		}
		if r.CompletedAt > 0 {
			entry.CompletedAt = time.Unix(r.CompletedAt, 0)
		}
		if r.FileModifiedAt > 0 {
			entry.FileModifiedAt = time.Unix(r.FileModifiedAt, 0)
		}
		res[r.ID] = entry
	}
	return res, nil
}

// UpsertResult inserts or replaces result by id. A result with a remote path owned by another id
// is discarded with ErrConflict, the first stored entry wins.
func (s *SQLiteStore) UpsertResult(entry ResultEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTx(tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertTx(tx *sqlx.Tx, entry ResultEntry) error {
	if entry.RemotePath != "" {
		var owner string
		err := tx.Get(&owner, `SELECT id FROM results WHERE remote_path = ? AND id != ? LIMIT 1`, entry.RemotePath, entry.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: remote path %s already stored as %s", ErrConflict, entry.RemotePath, owner)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check remote path %s: %w", entry.RemotePath, err)
		}
	}

	items := entry.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items of %s: %w", entry.ID, err)
	}

	row := resultRow{
		ID:         entry.ID,
		Store:      entry.Store,
		Category:   entry.Category,
		Items:      string(itemsJSON),
		ItemCount:  entry.ItemCount,
		OutputFile: entry.OutputFile,
		RemoteURL:  entry.RemoteURL,
		RemotePath: entry.RemotePath,
		FileSize:   entry.FileSize,
	}
	if !entry.CompletedAt.IsZero() {
		row.CompletedAt = entry.CompletedAt.Unix()
	}
	if !entry.FileModifiedAt.IsZero() {
		row.FileModifiedAt = entry.FileModifiedAt.Unix()
	}

	_, err = tx.NamedExec(`
		INSERT INTO results
		(id, store, category, items, item_count, output_file, remote_url, remote_path, completed_at, file_size, file_modified_at)
		VALUES (:id, :store, :category, :items, :item_count, :output_file, :remote_url, :remote_path, :completed_at,
			:file_size, :file_modified_at)
		ON CONFLICT(id) DO UPDATE SET
			store = excluded.store, category = excluded.category, items = excluded.items,
			item_count = excluded.item_count, output_file = excluded.output_file, remote_url = excluded.remote_url,
			remote_path = excluded.remote_path, completed_at = excluded.completed_at, file_size = excluded.file_size,
			file_modified_at = excluded.file_modified_at`, row)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", entry.ID, err)
	}
	return nil
}

// DeleteResults removes results by ids, returns number of deleted rows
func (s *SQLiteStore) DeleteResults(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args, err := sqlx.In(`DELETE FROM results WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to build delete query: %w", err)
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return int(n), nil
}

// LoadTombstones returns all tombstone keys, result ids and file:{path} markers
func (s *SQLiteStore) LoadTombstones() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []string{}
	if err := s.db.Select(&keys, `SELECT key FROM tombstones`); err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	res := make(map[string]bool, len(keys))
	for _, k := range keys {
		res[k] = true
	}
	return res, nil
}

// ReplaceTombstones replaces the whole tombstone set
func (s *SQLiteStore) ReplaceTombstones(keys map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tombstones`); err != nil {
		return fmt.Errorf("failed to clear tombstones: %w", err)
	}
	for k, ok := range keys {
		if !ok {
			continue
		}
		if err := addTombstoneTx(tx, k, ""); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddTombstones adds keys to the tombstone set, existing keys are kept
func (s *SQLiteStore) AddTombstones(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	for _, k := range keys {
		if err := addTombstoneTx(tx, k, ""); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func addTombstoneTx(tx *sqlx.Tx, key, kind string) error {
	if key == "" {
		return nil
	}
	if kind == "" {
		kind = "result"
		if strings.HasPrefix(key, FilePrefix) {
			kind = "file"
		}
	}
	_, err := tx.Exec(`INSERT OR IGNORE INTO tombstones (key, kind, created_at) VALUES (?, ?, ?)`,
		key, kind, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add tombstone %s: %w", key, err)
	}
	return nil
}

// GetUploadStatus returns upload record of the file, sql.ErrNoRows wrapped if not found
func (s *SQLiteStore) GetUploadStatus(store, category, filename string) (UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec UploadRecord
	err := s.db.Get(&rec, `SELECT store, category, filename, status, error, updated_at FROM upload_status
		WHERE store = ? AND category = ? AND filename = ?`, store, category, filename)
	if err != nil {
		return UploadRecord{}, fmt.Errorf("failed to get upload status of %s/%s/%s: %w", store, category, filename, err)
	}
	return rec, nil
}

// SetUploadStatus sets upload status of the file
func (s *SQLiteStore) SetUploadStatus(store, category, filename string, status enums.UploadStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setUploadStatusTx(tx, UploadRecord{Store: store, Category: category, Filename: filename,
		Status: status, Error: errMsg, UpdatedAt: time.Now().Unix()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func setUploadStatusTx(tx *sqlx.Tx, rec UploadRecord) error {
	_, err := tx.NamedExec(`
		INSERT INTO upload_status (store, category, filename, status, error, updated_at)
		VALUES (:store, :category, :filename, :status, :error, :updated_at)
		ON CONFLICT(store, category, filename) DO UPDATE SET
			status = excluded.status, error = excluded.error, updated_at = excluded.updated_at`, rec)
	if err != nil {
		return fmt.Errorf("failed to set upload status of %s/%s/%s: %w", rec.Store, rec.Category, rec.Filename, err)
	}
	return nil
}

// ListUploadStatus returns all upload records
func (s *SQLiteStore) ListUploadStatus() ([]UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := []UploadRecord{}
	err := s.db.Select(&res, `SELECT store, category, filename, status, error, updated_at FROM upload_status
		ORDER BY store, category, filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload statuses: %w", err)
	}
	return res, nil
}

// ClearAllUploadStatus removes all upload records
func (s *SQLiteStore) ClearAllUploadStatus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM upload_status`); err != nil {
		return fmt.Errorf("failed to clear upload statuses: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
