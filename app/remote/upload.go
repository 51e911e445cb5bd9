package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
)

// Store is an object store for result files
type Store interface {
	Upload(ctx context.Context, localPath, store, category string, meta map[string]string) (Blob, error)
	List(ctx context.Context) ([]Blob, error)
	Download(ctx context.Context, objPath string) ([]byte, error)
	Delete(ctx context.Context, objPath string) (bool, error)
	Prefix() string
}

// StatusRecorder persists upload status of result files
type StatusRecorder interface {
	SetUploadStatus(store, category, filename string, status enums.UploadStatus, errMsg string) error
}

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Uploaded is a result of successful upload
type Uploaded struct {
	Blob
	LocalRemoved bool
}

// Uploader moves finished result files to the object store, retrying transient failures
type Uploader struct {
	Store       Store
	Status      StatusRecorder
	Repeater    Repeater
	DeleteLocal bool
}

// NewUploader makes Uploader with exponential backoff retries
func NewUploader(st Store, status StatusRecorder, deleteLocal bool) *Uploader {
	rpt := repeater.New(&strategy.Backoff{Repeats: 3, Duration: time.Second, Factor: 2, Jitter: true})
	return &Uploader{Store: st, Status: status, Repeater: rpt, DeleteLocal: deleteLocal}
}

// Upload copies localPath to the store and records upload status. With DeleteLocal the local file
// is removed after successful upload.
func (u *Uploader) Upload(ctx context.Context, store, category, localPath string, meta map[string]string) (Uploaded, error) {
	filename := filepath.Base(localPath)
	u.setStatus(store, category, filename, enums.UploadStatusUploading, "")

	var blob Blob
	err := u.Repeater.Do(ctx, func() error {
		b, e := u.Store.Upload(ctx, localPath, store, category, meta)
		if e != nil {
			log.Printf("[WARN] upload of %s failed, %v", localPath, e)
			return e
		}
		blob = b
		return nil
	})
	if err != nil {
		u.setStatus(store, category, filename, enums.UploadStatusFailed, err.Error())
		return Uploaded{}, fmt.Errorf("failed to upload %s: %w", localPath, err)
	}
	log.Printf("[INFO] uploaded %s to %s", localPath, blob.URL)

	res := Uploaded{Blob: blob}
	status := enums.UploadStatusBoth
	if u.DeleteLocal {
		if err := os.Remove(localPath); err != nil {
			log.Printf("[WARN] can't remove uploaded file %s, %v", localPath, err)
		} else {
			res.LocalRemoved = true
			status = enums.UploadStatusCloudOnly
		}
	}
	u.setStatus(store, category, filename, status, "")
	return res, nil
}

func (u *Uploader) setStatus(store, category, filename string, status enums.UploadStatus, errMsg string) {
	if u.Status == nil {
		return
	}
	if err := u.Status.SetUploadStatus(store, category, filename, status, errMsg); err != nil {
		log.Printf("[WARN] can't record upload status of %s/%s/%s, %v", store, category, filename, err)
	}
}
