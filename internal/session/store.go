package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session: not found")

type Store interface {
	Save(ctx context.Context, record Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps session records in process memory; expired records are
// dropped on read.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Save(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !record.ExpiresAt.IsZero() && !s.now().Before(record.ExpiresAt) {
		delete(s.records, id)
		return nil, ErrNotFound
	}

	return &record, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()

	return nil
}
