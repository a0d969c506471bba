package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"semsearch/internal/adapter/store/storetest"
	"semsearch/internal/domain"
	"semsearch/internal/logging"
	"semsearch/internal/port"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.RecordStore {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
		require.NoError(t, err)
		return s
	})
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.RecordStore {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "records.sqlite"))
		require.NoError(t, err)
		return s
	})
}

func TestBadgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) port.RecordStore {
		s, err := NewBadgerStore(BadgerOptions{InMemory: true, Logger: logging.Discard()})
		require.NoError(t, err)
		return s
	})
}

// TestMongoStore runs against a live server named by SEMSEARCH_TEST_MONGO_URI.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("SEMSEARCH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SEMSEARCH_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) port.RecordStore {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:        uri,
			Database:   "semsearch_test",
			Collection: t.Name(),
			Timeout:    5 * time.Second,
		})
		require.NoError(t, err)
		_, err = s.DeleteAll(ctx)
		require.NoError(t, err)
		return s
	})
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	ids, err := s.InsertMany(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = s.InsertMany(ctx, []domain.Record{{Name: "ann", Email: "a@x", Bio: "b", Embedding: []float32{1, 0}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	records, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ann", records[0].Name)
	require.Equal(t, []float32{1, 0}, records[0].Embedding)
}

func TestStores_CanceledInsertWritesNothing(t *testing.T) {
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer bolt.Close()
	badger, err := NewBadgerStore(BadgerOptions{InMemory: true, Logger: logging.Discard()})
	require.NoError(t, err)
	defer badger.Close()

	for name, s := range map[string]port.RecordStore{"bolt": bolt, "badger": badger} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := s.InsertMany(ctx, []domain.Record{{Name: "a", Email: "b", Bio: "c", Embedding: []float32{1}}})
			require.ErrorIs(t, err, domain.ErrStoreWrite)

			records, err := s.FindAll(context.Background())
			require.NoError(t, err)
			require.Empty(t, records)
		})
	}
}

func TestStores_DeleteAllOnClosedStoreIsUnavailable(t *testing.T) {
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "records.sqlite"))
	require.NoError(t, err)

	for name, s := range map[string]port.RecordStore{"bolt": bolt, "sqlite": sqlite} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())

			_, err := s.DeleteAll(context.Background())
			require.ErrorIs(t, err, domain.ErrStoreUnavailable)
			require.Equal(t, domain.KindStoreUnavailable, domain.KindOf(err))
		})
	}
}

func TestEncodeVector(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	require.Equal(t, v, got)

	empty, err := DecodeVector(EncodeVector(nil))
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = DecodeVector([]byte{3, 0, 0, 0, 1})
	require.ErrorIs(t, err, ErrInvalidVector)
}
