package usecase

import (
	"context"
	"log/slog"
	"strings"

	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// DefaultMaxBatchSize caps AddRecords when no limit is configured.
const DefaultMaxBatchSize = 1000

// ProgressFunc is called after each record is embedded with the number
// done so far and the batch size.
type ProgressFunc func(done, total int)

// IngestUseCase validates, embeds and stores batches of records.
type IngestUseCase struct {
	embedder     port.Embedder
	store        port.RecordStore
	maxBatchSize int
	logger       *slog.Logger
}

// NewIngestUseCase creates a new ingest use case. A maxBatchSize of zero
// selects DefaultMaxBatchSize.
func NewIngestUseCase(embedder port.Embedder, store port.RecordStore, maxBatchSize int, logger *slog.Logger) *IngestUseCase {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &IngestUseCase{
		embedder:     embedder,
		store:        store,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// AddRecords embeds every bio and writes the batch in one store call.
// Either every record is stored or none is.
func (u *IngestUseCase) AddRecords(ctx context.Context, inputs []domain.RecordInput, progress ProgressFunc) (*domain.IngestResult, error) {
	const op = "add_records"

	if err := u.validate(inputs); err != nil {
		return nil, err
	}

	records := make([]domain.Record, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, &domain.Error{Kind: domain.KindEmbedding, Op: op, Msg: "batch aborted", Err: err}
		}

		emb, err := u.embedder.Embed(ctx, in.Bio)
		if err != nil {
			u.logger.Warn("embedding failed, batch discarded", "index", i, "batch", len(inputs), "error", err)
			return nil, domain.Wrap(domain.KindEmbedding, op, err)
		}

		records[i] = domain.Record{
			Name:      in.Name,
			Email:     in.Email,
			Bio:       in.Bio,
			Embedding: emb,
		}
		if progress != nil {
			progress(i+1, len(inputs))
		}
	}

	ids, err := u.store.InsertMany(ctx, records)
	if err != nil {
		return nil, domain.Wrap(domain.KindStoreWrite, op, err)
	}

	return &domain.IngestResult{InsertedCount: len(ids), IDs: ids}, nil
}

func (u *IngestUseCase) validate(inputs []domain.RecordInput) error {
	const op = "add_records"

	if len(inputs) == 0 {
		return domain.InvalidInput(op, "no records provided")
	}
	if len(inputs) > u.maxBatchSize {
		return domain.InvalidInput(op, "batch of %d records exceeds the limit of %d", len(inputs), u.maxBatchSize)
	}

	for i, in := range inputs {
		var missing []string
		if strings.TrimSpace(in.Name) == "" {
			missing = append(missing, "name")
		}
		if strings.TrimSpace(in.Email) == "" {
			missing = append(missing, "email")
		}
		if strings.TrimSpace(in.Bio) == "" {
			missing = append(missing, "bio")
		}
		if len(missing) > 0 {
			return domain.InvalidInput(op, "record %d: missing %s", i, strings.Join(missing, ", "))
		}
	}
	return nil
}
