// Package storage holds photo blobs and hands back the public URLs
// that report records reference.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// ObjectStore is the photo blob sink used by the upload deployment
// mode. Implementations return a publicly reachable URL for the
// stored object.
type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// UploadError reports an object-store write or reference failure.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Name, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// ObjectName produces a collision-avoiding object name from the
// current timestamp plus a random suffix. Old objects are never
// deleted or rotated.
func ObjectName() string {
	return fmt.Sprintf("%d_%s.jpg", time.Now().UnixMilli(), uuid.NewString())
}

// DiskStore writes blobs under a local directory served as static
// files at <baseURL>/uploads/.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *DiskStore) Upload(_ context.Context, name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	url := s.baseURL + "/uploads/" + filepath.Base(name)
	log.WithFields(log.Fields{
		"object": name,
		"bytes":  len(data),
	}).Info("photo stored")
	return url, nil
}
