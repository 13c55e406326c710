package answer

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// Retriever ranks items for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}
