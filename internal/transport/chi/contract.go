package chi

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	answeruc "github.com/kailas-cloud/pixdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
)

// Retriever ranks images for a text query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}

// Answerer retrieves and completes. Enabled is false when completion is off.
type Answerer interface {
	Enabled() bool
	Answer(ctx context.Context, query string, k int) (answeruc.Answer, error)
}

// Ingester stores uploaded images.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, filename, contentType string) (domain.Item, error)
}

// ItemReader reads stored images.
type ItemReader interface {
	Get(ctx context.Context, id int64) (domain.Item, error)
}

// IndexScheduler schedules background index builds.
type IndexScheduler interface {
	EnsureIndexes() bool
	State() indexing.State
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
