package indexing

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// Catalog is the index catalog capability of the vector store.
type Catalog interface {
	Specs() []domain.IndexSpec
	IndexExists(ctx context.Context, spec domain.IndexSpec) (bool, error)
	// CreateIndex must not block concurrent writes. It returns
	// domain.ErrIndexExists when the index appeared concurrently.
	CreateIndex(ctx context.Context, spec domain.IndexSpec) error
}
