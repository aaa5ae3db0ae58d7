package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON file per blob key.
// Params: root directory created on demand.
// Returns: store implementation for single-host persistence.
type FileStore struct {
	dir string
}

// NewFileStore creates directory-backed store.
// Params: root directory path.
// Returns: store or directory creation error.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads blob file.
// Params: blob key.
// Returns: file body or ErrNotFound.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return body, nil
}

// Save writes blob through temp file and rename.
// Params: blob key and body.
// Returns: write error.
func (s *FileStore) Save(_ context.Context, key string, body []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close blob %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename blob %q: %w", key, err)
	}
	return nil
}

// Close releases file store resources.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".json")
}
