package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	logger "github.com/sirupsen/logrus"
)

// FileStore keeps records in a single JSON object file, written atomically via
// a temp file rename. The zero value is not usable; use NewFileStore.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records map[string]json.RawMessage
	dirty   bool

	saves int // number of actual writes, for tests
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		records: make(map[string]json.RawMessage),
	}
}

// Load replaces in-memory state with the file contents. A missing file leaves
// the store empty; an unparseable file is logged and treated as empty.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).WithField("path", s.path).
				Warn("state file unreadable, starting empty")
		}
		s.records = make(map[string]json.RawMessage)
		s.dirty = false
		return nil
	}

	var loaded map[string]json.RawMessage
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.WithError(err).WithField("path", s.path).
			Warn("state file corrupt, starting empty")
		s.records = make(map[string]json.RawMessage)
		s.dirty = false
		return nil
	}

	s.records = loaded
	if s.records == nil {
		s.records = make(map[string]json.RawMessage)
	}
	s.dirty = false
	return nil
}

func (s *FileStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	return rec, ok
}

func (s *FileStore) Set(key string, rec json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && bytes.Equal(existing, rec) {
		return
	}
	s.records[key] = append(json.RawMessage(nil), rec...)
	s.dirty = true
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	s.dirty = true
}

func (s *FileStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys
}

// SaveIfDirty writes the whole map when something changed since the last save.
func (s *FileStore) SaveIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		logger.WithError(err).WithField("path", s.path).Error("failed to marshal state")
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		logger.WithError(err).WithField("path", s.path).Error("failed to create state dir")
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.WithError(err).WithField("path", s.path).Error("failed to write state file")
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		logger.WithError(err).WithField("path", s.path).Error("failed to replace state file")
		return err
	}

	s.saves++
	s.dirty = false
	return nil
}
