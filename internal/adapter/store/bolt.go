package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"semsearch/internal/domain"
)

var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
)

// BoltStore keeps records in a single bbolt file. Keys are the bucket
// sequence in big-endian order, so iteration order is insertion order.
type BoltStore struct {
	db         *bbolt.DB
	configHash string
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}

	return &BoltStore{db: db}, nil
}

type boltRecord struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Embedding []float32 `json:"embedding"`
}

func (s *BoltStore) InsertMany(ctx context.Context, records []domain.Record) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, writeFailed("insert_many", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for i, r := range records {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(boltRecord{
				Name:      r.Name,
				Email:     r.Email,
				Bio:       r.Bio,
				Embedding: r.Embedding,
			})
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			if err := b.Put(itob(seq), data); err != nil {
				return err
			}
			ids[i] = strconv.FormatUint(seq, 10)
		}
		return nil
	})
	if err != nil {
		return nil, writeFailed("insert_many", err)
	}
	return ids, nil
}

func (s *BoltStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("find_all", err)
	}

	var records []domain.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		records = make([]domain.Record, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			rec := domain.Record{ID: strconv.FormatUint(binary.BigEndian.Uint64(k), 10)}
			var stored boltRecord
			// An undecodable value still surfaces with its ID and no
			// embedding; search skips it.
			if err := json.Unmarshal(v, &stored); err == nil {
				rec.Name = stored.Name
				rec.Email = stored.Email
				rec.Bio = stored.Bio
				rec.Embedding = stored.Embedding
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, unavailable("find_all", err)
	}
	return records, nil
}

// DeleteAll drops every record in one transaction. The ID sequence is kept,
// so IDs are never reused.
func (s *BoltStore) DeleteAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("delete_all", err)
	}

	var deleted int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq := b.Sequence()
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			deleted++
		}

		if err := tx.DeleteBucket(bucketRecords); err != nil {
			return err
		}
		nb, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}
		if err := nb.SetSequence(seq); err != nil {
			return err
		}

		if s.configHash != "" {
			return putSchemaInfo(tx, &SchemaInfo{Version: CurrentSchemaVersion, ConfigHash: s.configHash})
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("delete_all", err)
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketRecords).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
