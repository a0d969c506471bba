package embedding

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"semsearch/config"
	"semsearch/internal/domain"
	"semsearch/internal/port"
)

// Load builds the process-wide embedder: the configured model behind a
// Serial wrapper, optionally fronted by a query cache. Any failure is a
// ModelLoadFailure; the caller must not start serving.
func Load(cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, error) {
	model, err := newModel(cfg)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindModelLoad, Op: "load_model", Msg: cfg.Provider, Err: err}
	}

	var embedder port.Embedder = NewSerial(model, cfg.Concurrency, cfg.Timeout, logger)
	if cfg.CacheSize > 0 {
		embedder = NewCached(embedder, NewQueryCache(cfg.CacheSize, cfg.CacheTTL))
	}

	logger.Info("embedding model loaded",
		"provider", cfg.Provider,
		"model", model.ModelName(),
		"dimension", model.Dimension(),
		"concurrency", max(cfg.Concurrency, 1),
	)
	return embedder, nil
}

func newModel(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "local", "":
		return NewHashing(cfg.Dimension)

	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		opts := []Option{
			WithModel(cfg.Model),
			WithDimension(cfg.Dimension, strings.HasPrefix(cfg.Model, "text-embedding-3")),
			WithRateLimit(cfg.RequestsPerSecond),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewOpenAI(apiKey, opts...)

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = ollamaBaseURL
		}
		return NewOpenAI("ollama",
			WithModel(cfg.Model),
			WithDimension(cfg.Dimension, false),
			WithBaseURL(baseURL),
			WithRateLimit(cfg.RequestsPerSecond),
		)
	}
	return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
}
