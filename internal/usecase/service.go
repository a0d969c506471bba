package usecase

import (
	"context"
	"log/slog"
	"time"

	"semsearch/config"
	"semsearch/internal/adapter/retriever"
	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// Service is the entry point shared by the HTTP server and the CLI.
// It is safe for concurrent use.
type Service struct {
	ingest   *IngestUseCase
	search   *SearchUseCase
	store    port.RecordStore
	embedder port.Embedder
	logger   *slog.Logger
}

// NewService wires the use cases around a brute-force retriever over store.
func NewService(cfg *config.Config, embedder port.Embedder, store port.RecordStore, logger *slog.Logger) *Service {
	return &Service{
		ingest:   NewIngestUseCase(embedder, store, cfg.Ingest.MaxBatchSize, logger),
		search:   NewSearchUseCase(embedder, retriever.NewBruteForce(store, logger), cfg.Search, logger),
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Embedder exposes the loaded model, for health reporting.
func (s *Service) Embedder() port.Embedder {
	return s.embedder
}

func (s *Service) AddRecords(ctx context.Context, inputs []domain.RecordInput) (*domain.IngestResult, error) {
	return s.AddRecordsWithProgress(ctx, inputs, nil)
}

// AddRecordsWithProgress is AddRecords with a per-record progress callback.
func (s *Service) AddRecordsWithProgress(ctx context.Context, inputs []domain.RecordInput, progress ProgressFunc) (*domain.IngestResult, error) {
	start := time.Now()
	result, err := s.ingest.AddRecords(ctx, inputs, progress)
	if err != nil {
		s.logFailure("add records failed", err, "records", len(inputs))
		return nil, err
	}
	s.logger.Info("records added", "count", result.InsertedCount, "duration", time.Since(start))
	return result, nil
}

func (s *Service) Search(ctx context.Context, query string, opts ...SearchOption) ([]domain.ScoredRecord, error) {
	start := time.Now()
	results, err := s.search.Search(ctx, query, opts...)
	if err != nil {
		s.logFailure("search failed", err)
		return nil, err
	}
	s.logger.Info("search complete", "results", len(results), "duration", time.Since(start))
	return results, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Record, error) {
	records, err := s.store.FindAll(ctx)
	if err != nil {
		err = storeUnavailable("list_all", err)
		s.logFailure("list records failed", err)
		return nil, err
	}
	s.logger.Debug("records listed", "count", len(records))
	return records, nil
}

func (s *Service) ClearAll(ctx context.Context) (int, error) {
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		err = storeUnavailable("clear_all", err)
		s.logFailure("clear records failed", err)
		return 0, err
	}
	s.logger.Info("records cleared", "count", n)
	return n, nil
}

// storeUnavailable reports any store failure on a read or clear path as
// StoreUnavailable, whatever kind the adapter attached.
func storeUnavailable(op string, err error) error {
	if domain.KindOf(err) == domain.KindStoreUnavailable {
		return err
	}
	return &domain.Error{Kind: domain.KindStoreUnavailable, Op: op, Err: err}
}

// logFailure logs caller mistakes and cancellations at info and
// infrastructure faults at error.
func (s *Service) logFailure(msg string, err error, args ...any) {
	args = append(args, "kind", domain.KindOf(err).String(), "error", err)
	if domain.KindOf(err) == domain.KindInvalidInput || domain.IsCanceled(err) {
		s.logger.Info(msg, args...)
		return
	}
	s.logger.Error(msg, args...)
}
