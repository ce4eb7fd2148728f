package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"positionkeeper/src/model"
	"positionkeeper/src/repository"
)

// DBStore keeps records in the state_records table, one bucket per logical
// store. Changes are tracked per key so SaveIfDirty only touches changed rows.
type DBStore struct {
	mu      sync.Mutex
	repo    *repository.StateRepository
	bucket  string
	records map[string]json.RawMessage
	changed map[string]struct{}
	removed map[string]struct{}
}

func NewDBStore(repo *repository.StateRepository, bucket string) *DBStore {
	return &DBStore{
		repo:    repo,
		bucket:  bucket,
		records: make(map[string]json.RawMessage),
		changed: make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

// Load replaces in-memory state with the bucket contents. A read failure is
// logged and leaves the store empty (fail open to "no record").
func (s *DBStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]json.RawMessage)
	s.changed = make(map[string]struct{})
	s.removed = make(map[string]struct{})

	rows, err := s.repo.LoadBucket(context.Background(), s.bucket)
	if err != nil {
		logger.WithError(err).WithField("bucket", s.bucket).
			Warn("state bucket unreadable, starting empty")
		return nil
	}
	for i := range rows {
		s.records[rows[i].Key] = json.RawMessage(rows[i].Value)
	}
	return nil
}

func (s *DBStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	return rec, ok
}

func (s *DBStore) Set(key string, rec json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && bytes.Equal(existing, rec) {
		return
	}
	s.records[key] = append(json.RawMessage(nil), rec...)
	s.changed[key] = struct{}{}
	delete(s.removed, key)
}

func (s *DBStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return
	}
	delete(s.records, key)
	delete(s.changed, key)
	s.removed[key] = struct{}{}
}

func (s *DBStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys
}

// SaveIfDirty upserts changed rows and deletes removed ones. Nothing changed
// means no database round trip at all.
func (s *DBStore) SaveIfDirty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.changed) == 0 && len(s.removed) == 0 {
		return nil
	}

	ctx := context.Background()
	var firstErr error

	for key := range s.changed {
		rec := &model.StateRecord{
			Bucket:    s.bucket,
			Key:       key,
			Value:     string(s.records[key]),
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.repo.Upsert(ctx, rec); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(s.changed, key)
	}

	for key := range s.removed {
		if err := s.repo.Delete(ctx, s.bucket, key); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delete(s.removed, key)
	}

	return firstErr
}
