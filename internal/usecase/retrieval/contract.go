package retrieval

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// Repository defines the storage contract for per-modality ANN queries.
type Repository interface {
	SearchByDistance(
		ctx context.Context, m domain.Modality, vector []float32, limit int,
	) ([]retrieval.Candidate, error)
}

// Embedder vectorizes query text into the shared visual/text space.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
