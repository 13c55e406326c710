package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	logpkg "github.com/kailas-cloud/pixdex/internal/logger"
	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
)

const (
	defaultK              = 3
	defaultMaxK           = 50
	defaultMaxUploadBytes = 20 << 20
	uploadField           = "file"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Services are the use cases behind the HTTP API. Answer, Ingest and
// Indexes may be nil; their routes then answer 503.
type Services struct {
	Retrieval Retriever
	Answer    Answerer
	Ingest    Ingester
	Items     ItemReader
	Indexes   IndexScheduler
	Health    HealthChecker
}

// Options tune request limits.
type Options struct {
	DefaultK       int // used when a request omits k; capped by MaxK
	MaxK           int
	MaxUploadBytes int64
}

func (o *Options) applyDefaults() {
	if o.MaxK <= 0 {
		o.MaxK = defaultMaxK
	}
	if o.DefaultK <= 0 {
		o.DefaultK = defaultK
	}
	o.DefaultK = min(o.DefaultK, o.MaxK)
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = defaultMaxUploadBytes
	}
}

// Server serves the pixdex HTTP API.
type Server struct {
	svc           Services
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	opts.applyDefaults()
	s := &Server{svc: svc, opts: opts, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable),
		sentinelHandler(domain.ErrStorageUnavailable, http.StatusServiceUnavailable, ErrorCodeStorageUnavailable),
		sentinelHandler(domain.ErrCompletionUnavailable, http.StatusServiceUnavailable, ErrorCodeCompletionUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api", func(r chi.Router) {
		r.Post("/search/retrieve", s.Retrieve)
		r.Get("/search", s.Search)
		r.Post("/upload-image", s.UploadImage)
		r.Get("/images/{id}", s.GetImage)
		r.Post("/indexes/ensure", s.EnsureIndexes)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})
}

// Retrieve handles POST /api/search/retrieve. When completion is enabled the
// response carries the generated answer; a completion failure degrades to
// items only.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid JSON body")
		return
	}
	k, err := s.resolveK(req.K)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())

	if s.svc.Answer == nil || !s.svc.Answer.Enabled() {
		items, err := s.svc.Retrieval.Retrieve(ctx, req.Query, k)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		setEmbeddingHeaders(w, usage)
		writeJSON(w, http.StatusOK, RetrieveResponse{Items: resultsToAPI(items)})
		return
	}

	ans, err := s.svc.Answer.Answer(ctx, req.Query, k)
	if err != nil && !(errors.Is(err, domain.ErrCompletionUnavailable) && ans.Items != nil) {
		s.handleDomainError(w, err)
		return
	}
	resp := RetrieveResponse{Items: resultsToAPI(ans.Items)}
	if err != nil {
		s.logger.Warn("completion failed, returning items only", zap.Error(err))
	} else {
		resp.Completion = &ans.Completion
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid parameter q")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "k", query, &params.K); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid parameter k")
		return
	}
	k, err := s.resolveK(params.K)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.svc.Retrieval.Retrieve(ctx, params.Q, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RetrieveResponse{Items: resultsToAPI(items)})
}

// UploadImage handles POST /api/upload-image.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ingest == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeStorageUnavailable, "upload is disabled")
		return
	}

	if r.ContentLength > s.opts.MaxUploadBytes {
		s.writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "failed to read upload")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ctx = logpkg.With(ctx, zap.String("upload", header.Filename), zap.Int("upload_bytes", len(data)))
	it, err := s.svc.Ingest.Ingest(ctx, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, itemToAPI(it))
}

func (s *Server) writeTooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
		fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadBytes))
}

// GetImage handles GET /api/images/{id}.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "id must be a positive integer")
		return
	}
	it, err := s.svc.Items.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToAPI(it))
}

// EnsureIndexes handles POST /api/indexes/ensure. The build runs in the
// background; the response only reports whether it was scheduled.
func (s *Server) EnsureIndexes(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Indexes == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable, "index management is disabled")
		return
	}
	scheduled := s.svc.Indexes.EnsureIndexes()
	writeJSON(w, http.StatusAccepted, EnsureIndexesResponse{
		Scheduled: scheduled,
		State:     s.svc.Indexes.State().String(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resolveK applies the default and clamps to the configured maximum.
func (s *Server) resolveK(k *int) (int, error) {
	if k == nil {
		return s.opts.DefaultK, nil
	}
	if *k < 1 {
		return 0, errors.New("k must be at least 1")
	}
	return min(*k, s.opts.MaxK), nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if !usage.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	if usage.ImageTokens > 0 {
		w.Header().Set("X-Embedding-Image-Tokens", strconv.Itoa(usage.ImageTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrRetrievalUnavailable,
		domain.ErrStorageUnavailable,
		domain.ErrCompletionUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func resultsToAPI(rs []retrieval.Result) []RetrievedItem {
	out := make([]RetrievedItem, 0, len(rs))
	for i := range rs {
		out = append(out, resultToAPI(&rs[i]))
	}
	return out
}

func resultToAPI(r *retrieval.Result) RetrievedItem {
	it := r.Item()
	mods := r.Modalities()
	used := make([]string, 0, len(mods))
	for _, m := range mods {
		used = append(used, string(m))
	}
	return RetrievedItem{
		ID:             it.ID,
		URL:            it.URL,
		Width:          it.Width,
		Height:         it.Height,
		Score:          r.Score(),
		OCRText:        textPtr(it),
		ModalitiesUsed: used,
		Distances:      modalityMap(r.Distances()),
		Similarities:   modalityMap(r.Similarities()),
	}
}

func itemToAPI(it domain.Item) ImageResponse {
	return ImageResponse{
		ID:      it.ID,
		URL:     it.URL,
		Hash:    it.Hash,
		Width:   it.Width,
		Height:  it.Height,
		OCRText: textPtr(it),
	}
}

func textPtr(it domain.Item) *string {
	if it.Text == "" {
		return nil
	}
	t := it.Text
	return &t
}

func modalityMap(m map[domain.Modality]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
