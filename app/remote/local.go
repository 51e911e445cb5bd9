package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const metaSuffix = ".meta"

// Local stores result files in a local directory with the same layout as the bucket
type Local struct {
	baseDir string
	prefix  string
}

// NewLocal makes Local store, creates base directory if missing
func NewLocal(baseDir, prefix string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Local{baseDir: baseDir, prefix: strings.Trim(prefix, "/")}, nil
}

// Upload copies local file into the store
func (l *Local) Upload(_ context.Context, localPath, store, category string, meta map[string]string) (Blob, error) {
	data, err := os.ReadFile(localPath) //nolint:gosec // path of crawler output
	if err != nil {
		return Blob{}, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	objPath := ObjectPath(l.prefix, store, category, filepath.Base(localPath))
	full, err := l.fullPath(objPath)
	if err != nil {
		return Blob{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return Blob{}, fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return Blob{}, fmt.Errorf("failed to write %s: %w", full, err)
	}
	if len(meta) > 0 {
		mb, err := json.Marshal(meta)
		if err != nil {
			return Blob{}, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if err := os.WriteFile(full+metaSuffix, mb, 0o600); err != nil {
			return Blob{}, fmt.Errorf("failed to write metadata of %s: %w", full, err)
		}
	}
	st, err := os.Stat(full)
	if err != nil {
		return Blob{}, fmt.Errorf("failed to stat %s: %w", full, err)
	}
	return Blob{Path: objPath, URL: "file://" + full, Size: st.Size(), Updated: st.ModTime(), Metadata: meta}, nil
}

// List returns all stored json objects
func (l *Local) List(_ context.Context) ([]Blob, error) {
	root := filepath.Join(l.baseDir, filepath.FromSlash(l.prefix))
	res := []Blob{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		blob := Blob{Path: filepath.ToSlash(rel), URL: "file://" + p, Size: info.Size(), Updated: info.ModTime()}
		if mb, err := os.ReadFile(p + metaSuffix); err == nil { //nolint:gosec // path inside base dir
			_ = json.Unmarshal(mb, &blob.Metadata)
		}
		res = append(res, blob)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	return res, nil
}

// Download returns content of the object
func (l *Local) Download(_ context.Context, objPath string) ([]byte, error) {
	full, err := l.fullPath(objPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full) //nolint:gosec // path checked against base dir
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objPath, err)
	}
	return data, nil
}

// Delete removes the object, returns false if it didn't exist
func (l *Local) Delete(_ context.Context, objPath string) (bool, error) {
	full, err := l.fullPath(objPath)
	if err != nil {
		return false, err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", objPath, err)
	}
	_ = os.Remove(full + metaSuffix)
	return true, nil
}

// Prefix returns object path prefix
func (l *Local) Prefix() string { return l.prefix }

func (l *Local) fullPath(objPath string) (string, error) {
	full := filepath.Join(l.baseDir, filepath.FromSlash(objPath))
	if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(l.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal in %q", ErrBadPath, objPath)
	}
	return full, nil
}
