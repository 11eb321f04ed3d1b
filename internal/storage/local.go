package storage

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BlobStore persists evidence images and returns a reference key for the
// alert record.
type BlobStore interface {
	Store(data []byte) (string, error)
}

// LocalStore writes blobs under a single upload directory and returns the
// public path a static file handler serves them from.
type LocalStore struct {
	uploadDir string
	publicURL string
}

func NewLocalStore(uploadDir, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload directory")
	}
	return &LocalStore{uploadDir: uploadDir, publicURL: publicURL}, nil
}

func (s *LocalStore) Store(data []byte) (string, error) {
	name := "alert_" + uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.uploadDir, name), data, 0o644); err != nil {
		return "", errors.Wrap(err, "write evidence image")
	}
	return s.publicURL + "/" + name, nil
}
