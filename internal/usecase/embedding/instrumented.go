package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// InstrumentedEmbedder wraps Embedder with logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// InstrumentedImageEmbedder wraps ImageEmbedder with logging.
type InstrumentedImageEmbedder struct {
	inner    domain.ImageEmbedder
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedImageEmbedder wraps an image embedder with observability.
func NewInstrumentedImageEmbedder(
	inner domain.ImageEmbedder, provider, model string, logger *zap.Logger,
) *InstrumentedImageEmbedder {
	return &InstrumentedImageEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// EmbedImage delegates to the inner embedder.
func (p *InstrumentedImageEmbedder) EmbedImage(
	ctx context.Context, data []byte, contentType string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.EmbedImage(ctx, data, contentType)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Image embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("bytes", len(data)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	p.logger.Debug("Image embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
	)

	return result, nil
}
