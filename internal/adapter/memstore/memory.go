package memstore

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"semsearch/internal/domain"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.Record
	nextID  uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertMany(ctx context.Context, records []domain.Record) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Wrap(domain.KindStoreWrite, "insert_many", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(records))
	for i, r := range records {
		s.nextID++
		r.ID = strconv.FormatUint(s.nextID, 10)
		r.Embedding = slices.Clone(r.Embedding)
		s.records = append(s.records, r)
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Wrap(domain.KindStoreUnavailable, "find_all", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		r.Embedding = slices.Clone(r.Embedding)
		out[i] = r
	}
	return out, nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.Wrap(domain.KindStoreUnavailable, "delete_all", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.records)
	s.records = nil
	return n, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
