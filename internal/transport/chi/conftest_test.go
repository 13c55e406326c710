package chi

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	answeruc "github.com/kailas-cloud/pixdex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
)

type mockRetriever struct {
	fn       func(ctx context.Context, query string, k int) ([]retrieval.Result, error)
	gotQuery string
	gotK     int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Result, error) {
	m.gotQuery, m.gotK = query, k
	if m.fn != nil {
		return m.fn(ctx, query, k)
	}
	return []retrieval.Result{}, nil
}

type mockAnswerer struct {
	enabled bool
	fn      func(ctx context.Context, query string, k int) (answeruc.Answer, error)
}

func (m *mockAnswerer) Enabled() bool { return m.enabled }

func (m *mockAnswerer) Answer(ctx context.Context, query string, k int) (answeruc.Answer, error) {
	return m.fn(ctx, query, k)
}

type mockIngester struct {
	fn          func(ctx context.Context, data []byte, filename, contentType string) (domain.Item, error)
	gotData     []byte
	gotFilename string
}

func (m *mockIngester) Ingest(ctx context.Context, data []byte, filename, contentType string) (domain.Item, error) {
	m.gotData, m.gotFilename = data, filename
	if m.fn != nil {
		return m.fn(ctx, data, filename, contentType)
	}
	return domain.Item{ID: 1, URL: "https://cdn/x/" + filename}, nil
}

type mockItems struct {
	items map[int64]domain.Item
}

func (m *mockItems) Get(_ context.Context, id int64) (domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return it, nil
}

type mockIndexes struct {
	scheduled bool
	state     indexing.State
	calls     int
}

func (m *mockIndexes) EnsureIndexes() bool {
	m.calls++
	return m.scheduled
}

func (m *mockIndexes) State() indexing.State { return m.state }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// withUsage simulates an embedding call that reports tokens into the request context.
func withUsage(tokens int, rs []retrieval.Result) func(context.Context, string, int) ([]retrieval.Result, error) {
	return func(ctx context.Context, _ string, _ int) ([]retrieval.Result, error) {
		domain.UsageFromContext(ctx).AddTextTokens(tokens)
		return rs, nil
	}
}

func sampleResults() []retrieval.Result {
	return []retrieval.Result{
		retrieval.New(
			domain.Item{ID: 7, URL: "https://cdn/7.png", Width: 640, Height: 480, Text: "EXIT"},
			0.86,
			map[domain.Modality]float64{domain.ModalityVisual: 0.1, domain.ModalityOCR: 0.2},
			map[domain.Modality]float64{domain.ModalityVisual: 0.9, domain.ModalityOCR: 0.8},
		),
		retrieval.New(
			domain.Item{ID: 3, URL: "https://cdn/3.png", Width: 10, Height: 10},
			0.5,
			map[domain.Modality]float64{domain.ModalityVisual: 0.5},
			map[domain.Modality]float64{domain.ModalityVisual: 0.5},
		),
	}
}

type testEnv struct {
	handler   http.Handler
	retriever *mockRetriever
	ingester  *mockIngester
	items     *mockItems
	indexes   *mockIndexes
	health    *mockHealth
}

func newTestEnv(t *testing.T, answer Answerer, apiKeys ...string) *testEnv {
	t.Helper()
	return newTestEnvWithOptions(t, answer, Options{MaxK: 10, MaxUploadBytes: 1 << 10}, apiKeys...)
}

func newTestEnvWithOptions(t *testing.T, answer Answerer, opts Options, apiKeys ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		retriever: &mockRetriever{},
		ingester:  &mockIngester{},
		items:     &mockItems{items: map[int64]domain.Item{}},
		indexes:   &mockIndexes{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(Services{
		Retrieval: env.retriever,
		Answer:    answer,
		Ingest:    env.ingester,
		Items:     env.items,
		Indexes:   env.indexes,
		Health:    env.health,
	}, opts, zap.NewNop())
	env.handler = NewRouter(srv, apiKeys, zap.NewNop())
	return env
}
