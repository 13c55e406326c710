package ingest

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// Repository persists ingested items.
type Repository interface {
	Insert(ctx context.Context, it *domain.Item) (domain.Item, error)
	UpdateText(ctx context.Context, id int64, text string, textEmbedding []float32) error
	FindIDByURL(ctx context.Context, url string) (int64, error)
}

// ObjectStore holds the original image bytes.
type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	URL(name string) string
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, name string) error
}
