package embedding

import (
	"context"
	"fmt"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// DefaultCacheSize bounds the in-process query embedding cache.
const DefaultCacheSize = 1024

const lruLayer = "lru"

// LRUEmbedder is a read-through, size-bounded LRU cache in front of an Embedder,
// keyed by the trimmed text. It is safe for concurrent use. Concurrent misses on
// the same key may both call the inner embedder; the last write wins.
type LRUEmbedder struct {
	inner      domain.Embedder
	cache      *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
}

// NewLRUEmbedder creates the cache. size <= 0 uses DefaultCacheSize.
// cacheTotal (labels "layer", "result") may be nil.
func NewLRUEmbedder(inner domain.Embedder, size int, cacheTotal *prometheus.CounterVec) (*LRUEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &LRUEmbedder{inner: inner, cache: c, cacheTotal: cacheTotal}, nil
}

// Embed returns the cached vector for the trimmed text or embeds it.
// A hit reports zero tokens. The trimmed text is what reaches the inner embedder.
func (e *LRUEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := strings.TrimSpace(text)

	if vec, ok := e.cache.Get(key); ok {
		e.inc("hit")
		return domain.EmbeddingResult{Embedding: slices.Clone(vec)}, nil
	}
	e.inc("miss")

	result, err := e.inner.Embed(ctx, key)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("lru embed: %w", err)
	}
	e.cache.Add(key, slices.Clone(result.Embedding))
	return result, nil
}

// Len returns the number of cached entries.
func (e *LRUEmbedder) Len() int {
	return e.cache.Len()
}

func (e *LRUEmbedder) inc(result string) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(lruLayer, result).Inc()
	}
}
