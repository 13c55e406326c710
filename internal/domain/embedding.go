package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
// Implementations must be deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes raw image bytes into the visual embedding space.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte, contentType string) (EmbeddingResult, error)
}

// TextExtractor recognizes text in an image. It reports ok=false instead of
// an error when nothing could be recognized.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (text string, ok bool)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// PrefixEmbedder prepends a fixed prompt template before embedding,
// e.g. "a photo of " for CLIP text queries.
type PrefixEmbedder struct {
	inner  Embedder
	prefix string
}

// NewPrefixEmbedder creates a decorator that prepends prefix.
func NewPrefixEmbedder(inner Embedder, prefix string) *PrefixEmbedder {
	return &PrefixEmbedder{inner: inner, prefix: prefix}
}

// Embed prepends the prefix and delegates to the inner embedder.
func (e *PrefixEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.prefix+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("prefix embed: %w", err)
	}
	return result, nil
}
