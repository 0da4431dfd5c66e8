package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the payload to a single file. Writes go through a
// temporary file followed by a rename so a crash mid-write never leaves a
// truncated history behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the parent directory if needed and returns a store
// backed by path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Save atomically replaces the file contents.
func (s *FileStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("store: rename %s: %w", s.path, err)
	}
	return nil
}

// Load reads the file; a missing file means nothing stored.
func (s *FileStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	return data, nil
}
