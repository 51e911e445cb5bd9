// Package remote provides object stores for crawl result files, Google Cloud Storage and a local
// directory, plus the uploader moving finished result files there with retries.
package remote

import (
	"errors"
	"path"
	"strings"
	"time"
)

// ErrBadPath returned for object paths outside of the store layout
var ErrBadPath = errors.New("bad object path")

// Blob describes a stored result object
type Blob struct {
	Path     string            `json:"path"`
	URL      string            `json:"url"`
	Size     int64             `json:"size"`
	Updated  time.Time         `json:"updated"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ObjectPath makes object path in {prefix}/{store}/{category}/{filename} layout
func ObjectPath(prefix, store, category, filename string) string {
	return path.Join(prefix, store, category, filename)
}

// SplitPath extracts store, category and file name from object path made by ObjectPath
func SplitPath(prefix, objPath string) (store, category, filename string, err error) {
	rel := strings.TrimPrefix(objPath, strings.TrimSuffix(prefix, "/")+"/")
	if prefix == "" {
		rel = objPath
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", ErrBadPath
	}
	return parts[0], parts[1], parts[2], nil
}
