package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the semantic search service.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend string        `yaml:"backend"` // "bolt", "badger", "sqlite", "mongo", "memory"
	Path    string        `yaml:"path"`    // file or directory for bolt, badger and sqlite; relative to the data dir
	Timeout time.Duration `yaml:"timeout"` // per-operation deadline for network stores

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`    // "local", "openai", "ollama"
	Model             string        `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv         string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL           string        `yaml:"base_url"`
	Dimension         int           `yaml:"dimension"`
	Concurrency       int           `yaml:"concurrency"` // physical inference slots; 1 serializes all calls
	Timeout           time.Duration `yaml:"timeout"`     // per-call inference deadline
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheSize         int           `yaml:"cache_size"` // query embedding cache entries (0 = disabled)
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Threshold float64 `yaml:"threshold"` // minimum cosine similarity to qualify
	Limit     int     `yaml:"limit"`     // maximum results returned
	MaxLimit  int     `yaml:"max_limit"` // upper bound a caller may request
}

// IngestConfig holds ingestion limits.
type IngestConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:         "bolt",
			Path:            "records.db",
			Timeout:         10 * time.Second,
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "testDB",
			MongoCollection: "users",
		},
		Embedding: EmbeddingConfig{
			Provider:    "local",
			Model:       "hashing-v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   384,
			Concurrency: 1,
			Timeout:     30 * time.Second,
			CacheSize:   256,
			CacheTTL:    10 * time.Minute,
		},
		Search: SearchConfig{
			Threshold: 0.3,
			Limit:     5,
			MaxLimit:  100,
		},
		Ingest: IngestConfig{
			MaxBatchSize: 1000,
		},
		Server: ServerConfig{
			Addr:            ":3000",
			AllowedOrigins:  []string{"*"},
			MaxBodyBytes:    4 << 20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "bolt", "badger", "sqlite", "mongo", "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s", c.Store.Backend)
	}
	switch c.Embedding.Provider {
	case "local", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding dimension must not be negative, got %d", c.Embedding.Dimension)
	}
	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be within [-1, 1], got %v", c.Search.Threshold)
	}
	if c.Search.Limit < 1 {
		return fmt.Errorf("search limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.MaxLimit < c.Search.Limit {
		return fmt.Errorf("search max_limit (%d) is below limit (%d)", c.Search.MaxLimit, c.Search.Limit)
	}
	if c.Ingest.MaxBatchSize < 1 {
		return fmt.Errorf("ingest max_batch_size must be positive, got %d", c.Ingest.MaxBatchSize)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for semsearch.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "semsearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(DataDir(dir), "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DataDir returns the directory holding local store files.
func DataDir(dir string) string {
	return filepath.Join(dir, ".semsearch")
}

// StorePath resolves the configured store path against the data directory.
func StorePath(dir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Store.Path) {
		return cfg.Store.Path
	}
	return filepath.Join(DataDir(dir), cfg.Store.Path)
}

// EnsureDataDir ensures the .semsearch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}
