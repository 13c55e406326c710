package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

// Fetcher runs one bounded ANN query per modality.
type Fetcher struct {
	repo Repository
}

// NewFetcher creates a candidate fetcher.
func NewFetcher(repo Repository) *Fetcher {
	return &Fetcher{repo: repo}
}

// FetchCandidates returns up to poolSize candidates nearest to vector in the
// modality's column, ascending by distance with ties broken by id.
// Store failures wrap domain.ErrRetrievalUnavailable; the underlying cause
// (e.g. domain.ErrIndexMissing) stays matchable. There is no retry.
func (f *Fetcher) FetchCandidates(
	ctx context.Context, vector []float32, m domain.Modality, poolSize int,
) ([]retrieval.Candidate, error) {
	if poolSize <= 0 {
		return nil, nil
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, m)
	}

	start := time.Now()
	cs, err := f.repo.SearchByDistance(ctx, m, vector, poolSize)
	metrics.CandidateFetchDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s candidates: %w", domain.ErrRetrievalUnavailable, m, err)
	}

	retrieval.SortCandidates(cs)
	if len(cs) > poolSize {
		cs = cs[:poolSize]
	}
	metrics.CandidatesTotal.WithLabelValues(string(m)).Add(float64(len(cs)))
	return cs, nil
}
