package port

import (
	"context"

	"semsearch/internal/domain"
)

// RecordStore persists records together with their embeddings.
//
// Implementations never perform similarity search themselves; scoring stays
// in the core so it behaves the same on every backend.
type RecordStore interface {
	// InsertMany writes a batch and returns the assigned IDs in input order.
	// Either the whole batch is written or the error says which records failed.
	InsertMany(ctx context.Context, records []domain.Record) ([]string, error)

	// FindAll returns every stored record in backend order.
	FindAll(ctx context.Context) ([]domain.Record, error)

	// DeleteAll removes every record and returns how many were removed.
	// Failures are reported as StoreUnavailable.
	DeleteAll(ctx context.Context) (int, error)

	// Close releases the underlying connection or file.
	Close() error
}
