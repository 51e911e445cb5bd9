package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	log "github.com/go-pkgz/lgr"
	"google.golang.org/api/iterator"
)

// GCS stores result files in a Google Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS makes GCS store and verifies the bucket is accessible.
// Authentication uses application default credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close gcs client, %v", closeErr)
		}
		return nil, fmt.Errorf("failed to get gcs bucket %q attributes: %w", bucket, err)
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Upload copies local file to {prefix}/{store}/{category}/{filename}
func (g *GCS) Upload(ctx context.Context, localPath, store, category string, meta map[string]string) (Blob, error) {
	fh, err := os.Open(localPath) //nolint:gosec // path of crawler output
	if err != nil {
		return Blob{}, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer fh.Close()

	objPath := ObjectPath(g.prefix, store, category, filepath.Base(localPath))
	wr := g.client.Bucket(g.bucket).Object(objPath).NewWriter(ctx)
	wr.ContentType = "application/json"
	wr.Metadata = meta
	size, err := io.Copy(wr, fh)
	if err != nil {
		if closeErr := wr.Close(); closeErr != nil {
			return Blob{}, fmt.Errorf("copy object %s: %w (close writer: %v)", objPath, err, closeErr)
		}
		return Blob{}, fmt.Errorf("copy object %s: %w", objPath, err)
	}
	if err := wr.Close(); err != nil {
		return Blob{}, fmt.Errorf("close writer of %s: %w", objPath, err)
	}
	return Blob{Path: objPath, URL: g.url(objPath), Size: size, Updated: wr.Attrs().Updated, Metadata: meta}, nil
}

// List returns all result objects under the prefix
func (g *GCS) List(ctx context.Context) ([]Blob, error) {
	q := &storage.Query{}
	if g.prefix != "" {
		q.Prefix = g.prefix + "/"
	}
	res := []Blob{}
	it := g.client.Bucket(g.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gcs objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, ".json") {
			continue
		}
		res = append(res, Blob{Path: attrs.Name, URL: g.url(attrs.Name), Size: attrs.Size, Updated: attrs.Updated,
			Metadata: attrs.Metadata})
	}
	return res, nil
}

// Download returns content of the object
func (g *GCS) Download(ctx context.Context, objPath string) ([]byte, error) {
	rd, err := g.client.Bucket(g.bucket).Object(objPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs object %s: %w", objPath, err)
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read gcs object %s: %w", objPath, err)
	}
	return data, nil
}

// Delete removes the object, returns false if it didn't exist
func (g *GCS) Delete(ctx context.Context, objPath string) (bool, error) {
	err := g.client.Bucket(g.bucket).Object(objPath).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete gcs object %s: %w", objPath, err)
	}
	return true, nil
}

// Prefix returns object path prefix
func (g *GCS) Prefix() string { return g.prefix }

// Close closes gcs client
func (g *GCS) Close() error { return g.client.Close() }

func (g *GCS) url(objPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, objPath)
}
