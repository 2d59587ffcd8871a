package kvstore

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store used in tests and as a fallback when no
// durable directory is available. Records survive only for the process
// lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Get reads the record for key into value.
func (s *MemoryStore) Get(key string, value any) error {
	s.mu.RLock()
	data, ok := s.records[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, value)
}

// Set overwrites the record for key.
func (s *MemoryStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[key] = data
	s.mu.Unlock()
	return nil
}

// Delete removes the record for key, if present.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
