package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcossilqueira/spotify-widget-go/internal/filelock"
)

const lockTimeout = 5 * time.Second

// FileStore keeps one JSON file per record under a base directory, guarded by
// file locks so concurrent processes never observe torn records.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get reads the record for key into value.
func (s *FileStore) Get(key string, value any) error {
	path := s.pathFor(key)
	lock := filelock.New(path)

	return lock.WithLock(lockTimeout, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to read record: %w", err)
		}

		if err := json.Unmarshal(data, value); err != nil {
			return fmt.Errorf("failed to parse record: %w", err)
		}
		return nil
	})
}

// Set overwrites the record for key. The record is written to a temporary
// file and renamed into place so readers see either the old or the new
// record, never a partial write.
func (s *FileStore) Set(key string, value any) error {
	path := s.pathFor(key)
	lock := filelock.New(path)

	return lock.WithLock(lockTimeout, func() error {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("failed to replace record: %w", err)
		}
		return nil
	})
}

// Delete removes the record for key, if present.
func (s *FileStore) Delete(key string) error {
	path := s.pathFor(key)
	lock := filelock.New(path)

	return lock.WithLock(lockTimeout, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	})
}

// pathFor maps a key to a file name. Namespace separators become path-safe
// underscores.
func (s *FileStore) pathFor(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}
