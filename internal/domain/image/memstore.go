package image

import (
	"context"
	"sync"
)

// MemStore is an in-process metadata store for demo deployments and tests.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*ImageRecord
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*ImageRecord)}
}

func (s *MemStore) Put(ctx context.Context, record *ImageRecord) error {
	s.mu.Lock()
	s.records[record.ID] = record.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*ImageRecord, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrImageNotFound
	}
	return record.Clone(), nil
}

func (s *MemStore) List(ctx context.Context) ([]*ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*ImageRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	return records, nil
}

func (s *MemStore) Search(ctx context.Context, tokens []string) ([]*ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*ImageRecord
	for _, record := range s.records {
		if record.Matches(tokens) {
			matches = append(matches, record.Clone())
		}
	}
	return matches, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrImageNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
