package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"semsearch/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	email     TEXT NOT NULL,
	bio       TEXT NOT NULL,
	embedding BLOB
)`

// SQLiteStore keeps records in a single table; embeddings are stored as
// EncodeVector blobs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	// busy_timeout: wait for the write lock instead of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("failed to open database: %w", err))
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("open", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, unavailable("open", fmt.Errorf("failed to create schema: %w", err))
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertMany(ctx context.Context, records []domain.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("insert_many", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (name, email, bio, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, writeFailed("insert_many", err)
	}
	defer stmt.Close()

	ids := make([]string, len(records))
	for i, r := range records {
		res, err := stmt.ExecContext(ctx, r.Name, r.Email, r.Bio, EncodeVector(r.Embedding))
		if err != nil {
			return nil, writeFailed("insert_many", fmt.Errorf("record %d: %w", i, err))
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, writeFailed("insert_many", err)
		}
		ids[i] = strconv.FormatInt(id, 10)
	}

	if err := tx.Commit(); err != nil {
		return nil, writeFailed("insert_many", err)
	}
	return ids, nil
}

func (s *SQLiteStore) FindAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, bio, embedding FROM records ORDER BY id`)
	if err != nil {
		return nil, unavailable("find_all", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var (
			id   int64
			rec  domain.Record
			blob []byte
		)
		if err := rows.Scan(&id, &rec.Name, &rec.Email, &rec.Bio, &blob); err != nil {
			return nil, unavailable("find_all", err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		if vec, err := DecodeVector(blob); err == nil {
			rec.Embedding = vec
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find_all", err)
	}
	return records, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return 0, unavailable("delete_all", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("delete_all", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
