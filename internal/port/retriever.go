package port

import (
	"context"

	"semsearch/internal/domain"
)

// Retriever finds the stored records nearest to a query embedding.
// The brute-force scan is one implementation; an ANN index would be another.
type Retriever interface {
	// Nearest returns at most limit records with similarity >= threshold,
	// ordered by descending similarity.
	Nearest(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.ScoredRecord, error)
}
