package chi

// ErrorCode is the machine-readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodePayloadTooLarge        ErrorCode = "payload_too_large"
	ErrorCodeRetrievalUnavailable   ErrorCode = "retrieval_unavailable"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeStorageUnavailable     ErrorCode = "storage_unavailable"
	ErrorCodeCompletionUnavailable  ErrorCode = "completion_unavailable"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RetrieveRequest is the body of POST /api/search/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

// SearchParams are the query parameters of GET /api/search.
type SearchParams struct {
	Q string `form:"q"`
	K *int   `form:"k"`
}

// RetrievedItem is one ranked image.
type RetrievedItem struct {
	ID             int64              `json:"id"`
	URL            string             `json:"url"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Score          float64            `json:"score"`
	OCRText        *string            `json:"ocr_text"`
	ModalitiesUsed []string           `json:"modalities_used"`
	Distances      map[string]float64 `json:"distances"`
	Similarities   map[string]float64 `json:"similarities"`
}

// RetrieveResponse is the body of both search endpoints.
type RetrieveResponse struct {
	Items      []RetrievedItem `json:"items"`
	Completion *string         `json:"completion,omitempty"`
}

// ImageResponse is a stored image without vectors.
type ImageResponse struct {
	ID      int64   `json:"id"`
	URL     string  `json:"url"`
	Hash    string  `json:"hash"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	OCRText *string `json:"ocr_text"`
}

// EnsureIndexesResponse is the body of POST /api/indexes/ensure.
type EnsureIndexesResponse struct {
	Scheduled bool   `json:"scheduled"`
	State     string `json:"state"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
