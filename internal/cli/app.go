package cli

import (
	"context"
	"fmt"

	"semsearch/internal/adapter/embedding"
	"semsearch/internal/adapter/store"
	"semsearch/internal/port"
	"semsearch/internal/usecase"
)

// app holds the components a command needs for one run.
type app struct {
	store    port.RecordStore
	embedder port.Embedder
	svc      *usecase.Service
}

// openApp opens the configured store and, when withModel is set, loads the
// embedding model. Commands that never embed skip the model so they work
// without provider credentials.
func openApp(ctx context.Context, withModel bool) (*app, error) {
	cfg := GetConfig()

	var emb port.Embedder
	if withModel {
		var err error
		emb, err = embedding.Load(cfg.Embedding, logger)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg, GetRootDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	return &app{
		store:    st,
		embedder: emb,
		svc:      usecase.NewService(cfg, emb, st, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close record store", "error", err)
	}
}
