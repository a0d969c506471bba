package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"semsearch/internal/domain"
)

const badgerRecordPrefix = "record:"

// BadgerStore keeps records as msgpack values under "record:<uuid>" keys.
// UUIDv7 keys sort by creation time, so prefix iteration yields insertion
// order across batches.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	Logger *slog.Logger
}

func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, unavailable("open", errors.New("badger directory is required for on-disk mode"))
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("failed to open badger db: %w", err))
	}
	return &BadgerStore{db: db}, nil
}

type badgerRecord struct {
	Name      string    `msgpack:"name"`
	Email     string    `msgpack:"email"`
	Bio       string    `msgpack:"bio"`
	Embedding []float32 `msgpack:"embedding"`
}

func (s *BadgerStore) InsertMany(ctx context.Context, records []domain.Record) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, writeFailed("insert_many", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	for i := range records {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, writeFailed("insert_many", err)
		}
		ids[i] = id.String()
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, r := range records {
			data, err := msgpack.Marshal(badgerRecord{
				Name:      r.Name,
				Email:     r.Email,
				Bio:       r.Bio,
				Embedding: r.Embedding,
			})
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			if err := txn.Set([]byte(badgerRecordPrefix+ids[i]), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, writeFailed("insert_many", err)
	}
	return ids, nil
}

func (s *BadgerStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("find_all", err)
	}

	prefix := []byte(badgerRecordPrefix)
	records := []domain.Record{}
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rec := domain.Record{ID: strings.TrimPrefix(string(item.Key()), badgerRecordPrefix)}

			err := item.Value(func(val []byte) error {
				var stored badgerRecord
				if err := msgpack.Unmarshal(val, &stored); err != nil {
					return nil
				}
				rec.Name = stored.Name
				rec.Email = stored.Email
				rec.Bio = stored.Bio
				rec.Embedding = stored.Embedding
				return nil
			})
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("find_all", err)
	}
	return records, nil
}

// DeleteAll counts the records and then drops the key prefix. Inserts that
// land between the two steps are removed but not counted.
func (s *BadgerStore) DeleteAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("delete_all", err)
	}

	prefix := []byte(badgerRecordPrefix)
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("delete_all", err)
	}

	if err := s.db.DropPrefix(prefix); err != nil {
		return 0, unavailable("delete_all", err)
	}
	return count, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf logging into slog. Info and debug
// output is dropped.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
