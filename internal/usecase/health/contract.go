package health

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// StoragePinger checks object storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// IndexStater exposes the ANN index lifecycle state.
type IndexStater interface {
	State() indexing.State
}
