package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voyagen/channelvault/internal/models"
)

// FileStore keeps the snapshot as a JSON document on local disk.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store writing to path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{path: path, now: time.Now}, nil
}

// Save writes the snapshot to a temp file and renames it into place so
// readers never see a partial document.
func (f *FileStore) Save(_ context.Context, c *models.Catalog) error {
	data, err := json.MarshalIndent(SnapshotOf(c), "", "  ")
	if err != nil {
		return &Error{Op: "save", Backend: "file", Err: err}
	}
	if err := writeAtomic(f.path, data); err != nil {
		return &Error{Op: "save", Backend: "file", Err: err}
	}
	return nil
}

// Load reads the snapshot; a missing file is a cache miss.
func (f *FileStore) Load(_ context.Context, maxAge time.Duration) (*models.Catalog, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, &Error{Op: "load", Backend: "file", Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &Error{Op: "load", Backend: "file", Err: err}
	}
	if !snap.Usable(f.now(), maxAge) {
		return nil, ErrCacheMiss
	}
	return snap.Catalog(), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(filepath.Clean(path)), ".channels-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("write: %w", writeErr)
		}
		return fmt.Errorf("close: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
