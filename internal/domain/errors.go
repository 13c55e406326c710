package domain

import "errors"

var (
	// ErrInvalidInput signals a request that cannot be served as given
	// (empty query text, empty or undecodable upload).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing item.
	ErrNotFound = errors.New("not found")
	// ErrRetrievalUnavailable signals that the backing vector store could not serve a query.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrIndexMissing signals that a modality's ANN index (or column) does not exist yet.
	ErrIndexMissing = errors.New("ann index missing")
	// ErrIndexExists signals that another creator already built the index.
	ErrIndexExists = errors.New("ann index already exists")
	// ErrIndexBuildFailed signals a failed background ANN index build.
	// It is logged, never returned to request callers.
	ErrIndexBuildFailed = errors.New("index build failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStorageUnavailable signals an object storage failure.
	ErrStorageUnavailable = errors.New("object storage unavailable")
	// ErrCompletionUnavailable signals that answer generation is disabled or failed.
	ErrCompletionUnavailable = errors.New("completion unavailable")
)
