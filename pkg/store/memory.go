package store

import "sync"

// MemoryStore keeps the payload in process memory. Intended for tests and
// ephemeral sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save copies and retains the payload.
func (s *MemoryStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the retained payload, or nil when nothing was saved.
func (s *MemoryStore) Load() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}
