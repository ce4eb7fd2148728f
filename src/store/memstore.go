package store

import (
	"bytes"
	"encoding/json"
	"sync"
)

// MemoryStore is a Store with no backing medium, used in backtests and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
	dirty   bool

	// Saves counts SaveIfDirty calls that found dirty state.
	Saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Load() error { return nil }

func (s *MemoryStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	return rec, ok
}

func (s *MemoryStore) Set(key string, rec json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && bytes.Equal(existing, rec) {
		return
	}
	s.records[key] = append(json.RawMessage(nil), rec...)
	s.dirty = true
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	s.dirty = true
}

func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys
}

func (s *MemoryStore) SaveIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	s.Saves++
	s.dirty = false
	return nil
}
