package health

import (
	"context"

	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"

	// Index lifecycle results. None of them degrade the service: retrieval
	// works without indexes, only slower, and OCR degrades to visual-only.
	CheckIndexesBuilt    CheckResult = "built"
	CheckIndexesBuilding CheckResult = "building"
	CheckIndexesPending  CheckResult = "pending"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	storage   StoragePinger
	indexes   IndexStater
}

// Option configures optional checks.
type Option func(*Service)

// WithStorage adds an object storage check.
func WithStorage(p StoragePinger) Option {
	return func(s *Service) { s.storage = p }
}

// WithIndexes reports the ANN index lifecycle state.
func WithIndexes(ix IndexStater) Option {
	return func(s *Service) { s.indexes = ix }
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker, opts ...Option) *Service {
	s := &Service{db: db, embedding: embedding}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["database"] = result(s.db.Ping(ctx))
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}
	if s.storage != nil {
		checks["storage"] = result(s.storage.Ping(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	if s.indexes != nil {
		checks["indexes"] = indexResult(s.indexes.State())
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}

func indexResult(st indexing.State) CheckResult {
	switch st {
	case indexing.Built:
		return CheckIndexesBuilt
	case indexing.Scheduled, indexing.Building:
		return CheckIndexesBuilding
	default:
		return CheckIndexesPending
	}
}
