package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"semsearch/internal/port"
)

// ErrEmptyInput is returned when the input text is empty.
var ErrEmptyInput = errors.New("embedding: empty input")

const (
	openAIBaseURL = "https://api.openai.com/v1"
	ollamaBaseURL = "http://localhost:11434/v1"
)

type openAIConfig struct {
	model          string
	dim            int
	baseURL        string
	httpClient     *http.Client
	sendDimensions bool
	rps            float64
}

// Option configures an OpenAI-compatible embedder.
type Option func(*openAIConfig)

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(c *openAIConfig) { c.model = model }
}

// WithDimension sets the expected output dimensionality. When request is true
// the dimension is also sent to the API (text-embedding-3 models only).
func WithDimension(dim int, request bool) Option {
	return func(c *openAIConfig) {
		c.dim = dim
		c.sendDimensions = request
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *openAIConfig) { c.httpClient = client }
}

// WithRateLimit caps outgoing requests per second (0 = unlimited).
func WithRateLimit(rps float64) Option {
	return func(c *openAIConfig) { c.rps = rps }
}

// OpenAI embeds text through an OpenAI-compatible embeddings endpoint
// (OpenAI, Ollama, Jina, DeepSeek, ...). The endpoint performs pooling.
type OpenAI struct {
	client         *openai.Client
	model          string
	dim            int
	sendDimensions bool
	limiter        *rate.Limiter
}

var _ port.Embedder = (*OpenAI)(nil)

// NewOpenAI creates an embedder for an OpenAI-compatible API.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	cfg := openAIConfig{
		model:      "text-embedding-3-small",
		baseURL:    openAIBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.dim <= 0 {
		cfg.dim = defaultDimension(cfg.model)
	}
	if cfg.dim <= 0 {
		return nil, fmt.Errorf("unknown dimension for model %s; set embedding.dimension", cfg.model)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(cfg.httpClient),
	)

	e := &OpenAI{
		client:         &client,
		model:          cfg.model,
		dim:            cfg.dim,
		sendDimensions: cfg.sendDimensions,
	}
	if cfg.rps > 0 {
		burst := int(cfg.rps)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.rps), burst)
	}
	return e, nil
}

func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := openai.EmbeddingNewParams{
		Model:          e.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if e.sendDimensions {
		params.Dimensions = openai.Int(int64(e.dim))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	return float64sToFloat32s(resp.Data[0].Embedding), nil
}

func (e *OpenAI) Dimension() int {
	return e.dim
}

func (e *OpenAI) ModelName() string {
	return e.model
}

// defaultDimension returns the native output size of well-known models.
func defaultDimension(model string) int {
	switch strings.TrimSuffix(model, ":latest") {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "jina-embeddings-v3":
		return 1024
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	}
	return 0
}

func float64sToFloat32s(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
