package pixdex

import "github.com/kailas-cloud/pixdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrRetrievalUnavailable   = domain.ErrRetrievalUnavailable
	ErrIndexBuildFailed       = domain.ErrIndexBuildFailed
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
