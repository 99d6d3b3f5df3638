package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFileMissing is returned when a stored file's metadata exists but the
// bytes are gone from disk.
var ErrFileMissing = errors.New("file missing on server")

// Store persists uploaded files and serves them back by storage name.
type Store interface {
	Save(r io.Reader, ext string) (storageName string, size int64, err error)
	Open(storageName string) (io.ReadCloser, error)
	Path(storageName string) string
	Remove(storageName string) error
}

// LocalStore writes files under a base directory on local disk.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates the base directory if needed
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save writes the stream to disk under a random storage name
func (s *LocalStore) Save(r io.Reader, ext string) (string, int64, error) {
	storageName := uuid.New().String() + ext

	f, err := os.Create(filepath.Join(s.baseDir, storageName))
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, err
	}

	return storageName, size, nil
}

// Open returns the stored bytes, or ErrFileMissing if the row outlived the file
func (s *LocalStore) Open(storageName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, storageName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileMissing
		}
		return nil, err
	}
	return f, nil
}

// Path returns the absolute path for a storage name (used for mail attachments)
func (s *LocalStore) Path(storageName string) string {
	return filepath.Join(s.baseDir, storageName)
}

// Remove deletes the stored bytes. Removing an absent file is a no-op.
func (s *LocalStore) Remove(storageName string) error {
	err := os.Remove(filepath.Join(s.baseDir, storageName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
