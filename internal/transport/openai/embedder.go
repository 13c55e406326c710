package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

// ImageInputFormat selects how image bytes are sent to the embeddings endpoint.
type ImageInputFormat string

const (
	// ImageInputObject sends [{"image": "<data uri>"}] (Jina CLIP style).
	ImageInputObject ImageInputFormat = "object"
	// ImageInputDataURI sends ["<data uri>"] (infinity / vLLM CLIP style).
	ImageInputDataURI ImageInputFormat = "data_uri"
)

// Embedder embeds text and images through an OpenAI-compatible
// /embeddings endpoint serving a CLIP model, so both share one vector space.
type Embedder struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	user        string
	provider    string
	imageFormat ImageInputFormat
	logger      *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	User        string
	Provider    string
	ImageFormat ImageInputFormat
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	format := cfg.ImageFormat
	if format == "" {
		format = ImageInputObject
	}
	return &Embedder{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		model:       openai.EmbeddingModel(cfg.Model),
		dimensions:  cfg.Dimensions,
		user:        cfg.User,
		provider:    cfg.Provider,
		imageFormat: format,
		logger:      logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return e.create(ctx, []string{text})
}

// EmbedImage implements domain.ImageEmbedder.
func (e *Embedder) EmbedImage(ctx context.Context, data []byte, contentType string) (domain.EmbeddingResult, error) {
	uri := dataURI(data, contentType)
	var input any = []map[string]string{{"image": uri}}
	if e.imageFormat == ImageInputDataURI {
		input = []string{uri}
	}
	return e.create(ctx, input)
}

func (e *Embedder) create(ctx context.Context, input any) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(time.Since(start).Seconds())

	if err != nil {
		e.fail("api_error")
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Data) == 0 {
		e.fail("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		e.fail("dimension_mismatch")
		return domain.EmbeddingResult{}, fmt.Errorf("embedding has %d dimensions, expected %d: %w",
			len(vec), e.dimensions, domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (e *Embedder) fail(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), kind).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
