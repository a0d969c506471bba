// Package storetest holds behaviour checks shared by every port.RecordStore
// implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) port.RecordStore

// Run exercises the RecordStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s port.RecordStore)
	}{
		{"EmptyStore", testEmptyStore},
		{"InsertAndFind", testInsertAndFind},
		{"InsertOrderAcrossBatches", testInsertOrderAcrossBatches},
		{"DeleteAll", testDeleteAll},
		{"InsertAfterClear", testInsertAfterClear},
		{"ConcurrentBatches", testConcurrentBatches},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func record(name string, emb ...float32) domain.Record {
	return domain.Record{
		Name:      name,
		Email:     name + "@example.com",
		Bio:       "bio of " + name,
		Embedding: emb,
	}
}

func testEmptyStore(t *testing.T, s port.RecordStore) {
	ctx := context.Background()

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testInsertAndFind(t *testing.T, s port.RecordStore) {
	ctx := context.Background()
	batch := []domain.Record{
		record("ann", 0.6, 0.8, 0),
		record("bob", 0, 0, 1),
	}

	ids, err := s.InsertMany(ctx, batch)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for i, r := range records {
		assert.Equal(t, ids[i], r.ID)
		assert.Equal(t, batch[i].Name, r.Name)
		assert.Equal(t, batch[i].Email, r.Email)
		assert.Equal(t, batch[i].Bio, r.Bio)
		assert.InDeltaSlice(t, batch[i].Embedding, r.Embedding, 1e-7)
	}
}

func testInsertOrderAcrossBatches(t *testing.T, s port.RecordStore) {
	ctx := context.Background()

	var want []string
	for i := 0; i < 3; i++ {
		ids, err := s.InsertMany(ctx, []domain.Record{
			record(fmt.Sprintf("a%d", i), 1, 0),
			record(fmt.Sprintf("b%d", i), 0, 1),
		})
		require.NoError(t, err)
		want = append(want, ids...)
	}

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.ID
	}
	assert.Equal(t, want, got)
}

func testDeleteAll(t *testing.T, s port.RecordStore) {
	ctx := context.Background()

	_, err := s.InsertMany(ctx, []domain.Record{record("a", 1), record("b", 1), record("c", 1)})
	require.NoError(t, err)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testInsertAfterClear(t *testing.T, s port.RecordStore) {
	ctx := context.Background()

	first, err := s.InsertMany(ctx, []domain.Record{record("a", 1)})
	require.NoError(t, err)
	_, err = s.DeleteAll(ctx)
	require.NoError(t, err)

	second, err := s.InsertMany(ctx, []domain.Record{record("b", 1)})
	require.NoError(t, err)
	require.Len(t, second, 1)

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Name)
	assert.Equal(t, second[0], records[0].ID)
	assert.NotEqual(t, first[0], second[0])
}

func testConcurrentBatches(t *testing.T, s port.RecordStore) {
	ctx := context.Background()
	const writers, perBatch = 4, 5

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]domain.Record, perBatch)
			for i := range batch {
				batch[i] = record(fmt.Sprintf("w%d-%d", w, i), float32(w), 1)
			}
			_, err := s.InsertMany(ctx, batch)
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, writers*perBatch)

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}
