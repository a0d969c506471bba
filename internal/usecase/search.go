package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"semsearch/config"
	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// SearchOptions carries per-call overrides of the configured defaults.
type SearchOptions struct {
	Threshold float64
	Limit     int
}

// SearchOption configures a single Search call.
type SearchOption func(*SearchOptions)

// WithThreshold sets the minimum cosine similarity, in [-1, 1].
func WithThreshold(t float64) SearchOption {
	return func(o *SearchOptions) { o.Threshold = t }
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) SearchOption {
	return func(o *SearchOptions) { o.Limit = n }
}

// SearchUseCase embeds a query and ranks stored records against it.
type SearchUseCase struct {
	embedder  port.Embedder
	retriever port.Retriever
	defaults  SearchOptions
	maxLimit  int
	logger    *slog.Logger
}

func NewSearchUseCase(embedder port.Embedder, retriever port.Retriever, cfg config.SearchConfig, logger *slog.Logger) *SearchUseCase {
	return &SearchUseCase{
		embedder:  embedder,
		retriever: retriever,
		defaults:  SearchOptions{Threshold: cfg.Threshold, Limit: cfg.Limit},
		maxLimit:  cfg.MaxLimit,
		logger:    logger,
	}
}

// Search returns records whose similarity to query is at least the
// threshold, most similar first, at most limit of them.
func (u *SearchUseCase) Search(ctx context.Context, query string, opts ...SearchOption) ([]domain.ScoredRecord, error) {
	const op = "search"

	o := u.defaults
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(query) == "" {
		return nil, domain.InvalidInput(op, "query is required")
	}
	if math.IsNaN(o.Threshold) || o.Threshold < -1 || o.Threshold > 1 {
		return nil, domain.InvalidInput(op, "threshold %v outside [-1, 1]", o.Threshold)
	}
	if o.Limit < 1 {
		return nil, domain.InvalidInput(op, "limit must be at least 1, got %d", o.Limit)
	}
	if u.maxLimit > 0 && o.Limit > u.maxLimit {
		return nil, domain.InvalidInput(op, "limit %d exceeds the maximum of %d", o.Limit, u.maxLimit)
	}

	vec, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, domain.Wrap(domain.KindEmbedding, op, err)
	}

	results, err := u.retriever.Nearest(ctx, vec, o.Threshold, o.Limit)
	if err != nil {
		return nil, domain.Wrap(domain.KindStoreUnavailable, op, err)
	}
	return results, nil
}
