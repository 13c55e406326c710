// Package retrieval answers natural-language image queries by fusing
// visual and OCR-text nearest neighbours.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	logpkg "github.com/kailas-cloud/pixdex/internal/logger"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

// Service executes hybrid retrieval requests.
type Service struct {
	embed   Embedder
	fetcher *Fetcher
	fusion  *Fusion
	logger  *zap.Logger
}

// New creates a retrieval service.
func New(embed Embedder, repo Repository, weights Weights, logger *zap.Logger) (*Service, error) {
	fusion, err := NewFusion(weights)
	if err != nil {
		return nil, fmt.Errorf("retrieval weights: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embed:   embed,
		fetcher: NewFetcher(repo),
		fusion:  fusion,
		logger:  logger,
	}, nil
}

// PoolSize is the per-modality candidate pool for a request of k results.
func PoolSize(k int) int {
	return max(2*k, k)
}

// Retrieve embeds the query once, fetches both modalities concurrently and
// returns at most k fused results. A missing OCR index degrades to
// visual-only results; every other store failure fails the request.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Result, error) {
	if k <= 0 {
		return []retrieval.Result{}, nil
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query text is empty", domain.ErrInvalidInput)
	}

	embResult, err := s.embed.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTextTokens(embResult.TotalTokens)

	pool := PoolSize(k)
	modalities := domain.Modalities()
	lists := make([][]retrieval.Candidate, len(modalities))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range modalities {
		g.Go(func() error {
			cs, err := s.fetcher.FetchCandidates(gctx, embResult.Embedding, m, pool)
			if err != nil {
				if m == domain.ModalityOCR && errors.Is(err, domain.ErrIndexMissing) {
					logpkg.FromContext(ctx, s.logger).Warn("ocr index missing, serving visual results only",
						zap.Error(err))
					metrics.ModalityDegradedTotal.WithLabelValues(string(m)).Inc()
					return nil
				}
				return err
			}
			lists[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byModality := make(map[domain.Modality][]retrieval.Candidate, len(modalities))
	for i, m := range modalities {
		byModality[m] = lists[i]
	}
	return s.fusion.Fuse(byModality, k), nil
}
