package retriever

import (
	"context"
	"log/slog"
	"sort"

	"semsearch/internal/domain"
	"semsearch/internal/port"
	"semsearch/internal/vecmath"
)

// BruteForce scores every stored record against the query. It is exact
// and linear in the number of records.
type BruteForce struct {
	store  port.RecordStore
	logger *slog.Logger
}

func NewBruteForce(store port.RecordStore, logger *slog.Logger) *BruteForce {
	return &BruteForce{store: store, logger: logger}
}

// Nearest returns records with similarity >= threshold, best first, at most
// limit of them. Records whose embedding is missing, has the wrong length
// or holds non-finite values are skipped and logged.
func (r *BruteForce) Nearest(ctx context.Context, query []float32, threshold float64, limit int) ([]domain.ScoredRecord, error) {
	records, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindStoreUnavailable, "search", err)
	}
	if len(records) == 0 {
		return []domain.ScoredRecord{}, nil
	}

	scored := make([]domain.ScoredRecord, 0, len(records))
	skipped := 0
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, domain.Wrap(domain.KindStoreUnavailable, "search", err)
			}
		}

		if reason := malformed(rec.Embedding, len(query)); reason != "" {
			skipped++
			r.logger.Warn("skipping record with malformed embedding",
				"id", rec.ID, "reason", reason, "length", len(rec.Embedding))
			continue
		}

		sim, err := vecmath.CosineSimilarity(query, rec.Embedding)
		if err != nil {
			skipped++
			r.logger.Warn("skipping record", "id", rec.ID, "error", err)
			continue
		}
		if sim >= threshold {
			scored = append(scored, domain.ScoredRecord{Record: rec, Similarity: sim})
		}
	}

	// Stable: equal scores keep store order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	r.logger.Debug("brute-force scan complete",
		"candidates", len(records), "skipped", skipped, "matches", len(scored))
	return scored, nil
}

func malformed(emb []float32, dim int) string {
	switch {
	case len(emb) == 0:
		return "missing"
	case len(emb) != dim:
		return "dimension mismatch"
	case !vecmath.IsFinite(emb):
		return "non-finite"
	}
	return ""
}
