package store

import (
	"context"
	"fmt"
	"log/slog"

	"semsearch/config"
	"semsearch/internal/adapter/memstore"
	"semsearch/internal/port"
)

// Open builds the record store selected by cfg.Store.Backend. File-backed
// stores resolve relative paths against the data directory under dir.
func Open(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger) (port.RecordStore, error) {
	sc := cfg.Store
	logger = logger.With("backend", sc.Backend)

	switch sc.Backend {
	case "bolt", "":
		path := config.StorePath(dir, cfg)
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, unavailable("open", err)
		}
		s, err := NewBoltStore(path)
		if err != nil {
			return nil, err
		}
		if err := prepareBolt(s, cfg.Embedding, logger); err != nil {
			s.Close()
			return nil, unavailable("open", err)
		}
		logger.Debug("record store opened", "path", path)
		return s, nil

	case "badger":
		path := config.StorePath(dir, cfg)
		s, err := NewBadgerStore(BadgerOptions{Dir: path, Logger: logger})
		if err != nil {
			return nil, err
		}
		logger.Debug("record store opened", "path", path)
		return s, nil

	case "sqlite":
		if err := config.EnsureDataDir(dir); err != nil {
			return nil, unavailable("open", err)
		}
		path := config.StorePath(dir, cfg)
		s, err := NewSQLiteStore(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Debug("record store opened", "path", path)
		return s, nil

	case "mongo":
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:        sc.MongoURI,
			Database:   sc.MongoDatabase,
			Collection: sc.MongoCollection,
			Timeout:    sc.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("record store opened", "database", sc.MongoDatabase, "collection", sc.MongoCollection)
		return s, nil

	case "memory":
		return memstore.NewMemoryStore(), nil
	}

	return nil, unavailable("open", fmt.Errorf("unsupported store backend: %s", sc.Backend))
}

// prepareBolt migrates the schema and warns when the stored vectors were
// produced by a different embedding configuration.
func prepareBolt(s *BoltStore, emb config.EmbeddingConfig, logger *slog.Logger) error {
	result, err := s.CheckMigration(emb)
	if err != nil {
		return err
	}

	if result.NeedsRebuild {
		n, err := s.Count()
		if err != nil {
			return err
		}
		if n > 0 {
			s.configHash = ComputeConfigHash(emb)
			logger.Warn("stored embeddings may not be comparable; clear and re-add records",
				"reason", result.Reason, "records", n)
			return nil
		}
	}
	if result.NeedsMigration || result.NeedsRebuild {
		logger.Info("migrating record store", "reason", result.Reason)
	}
	return s.Migrate(emb)
}
