package retrieval

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

func newTestService(t *testing.T, repo *mockRepo, emb *mockEmbedder) *Service {
	t.Helper()
	svc, err := New(emb, repo, DefaultWeights(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestRetrieve_FusesBothModalities(t *testing.T) {
	repo := &mockRepo{results: map[domain.Modality][]retrieval.Candidate{
		domain.ModalityVisual: {cand(1, 0.25), cand(2, 0.3)},
		domain.ModalityOCR:    {cand(2, 0.1)},
	}}
	emb := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 4}}
	svc := newTestService(t, repo, emb)

	got, err := svc.Retrieve(context.Background(), "  exit sign  ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertIDs(t, got, 2, 1)
	assertClose(t, "score", got[0].Score(), 0.7*0.6+0.9*0.4)
	if !slices.Equal(emb.texts, []string{"exit sign"}) {
		t.Errorf("expected trimmed query to be embedded, got %q", emb.texts)
	}
	if repo.callCount() != 2 {
		t.Fatalf("expected 2 store calls, got %d", repo.callCount())
	}
	for _, c := range repo.calls {
		if c.limit != 10 {
			t.Errorf("%s: expected pool size 10, got %d", c.modality, c.limit)
		}
	}
}

func TestRetrieve_NonPositiveKSkipsWork(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{}
	svc := newTestService(t, repo, emb)

	for _, k := range []int{0, -1} {
		got, err := svc.Retrieve(context.Background(), "cat", k)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("k=%d: expected empty non-nil results, got %#v", k, got)
		}
	}
	if len(emb.texts) != 0 {
		t.Errorf("expected no embed calls, got %q", emb.texts)
	}
	if repo.callCount() != 0 {
		t.Errorf("expected no store calls, got %d", repo.callCount())
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{}
	svc := newTestService(t, repo, emb)

	_, err := svc.Retrieve(context.Background(), " \t\n", 3)

	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if len(emb.texts) != 0 || repo.callCount() != 0 {
		t.Error("blank query must not reach the embedder or the store")
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	repo := &mockRepo{}
	svc := newTestService(t, repo, emb)

	_, err := svc.Retrieve(context.Background(), "cat", 3)

	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if repo.callCount() != 0 {
		t.Errorf("expected no store calls, got %d", repo.callCount())
	}
}

func TestRetrieve_MissingOCRIndexDegrades(t *testing.T) {
	repo := &mockRepo{
		results: map[domain.Modality][]retrieval.Candidate{
			domain.ModalityVisual: {cand(3, 0.25), cand(4, 0.5)},
		},
		errs: map[domain.Modality]error{domain.ModalityOCR: domain.ErrIndexMissing},
	}
	svc := newTestService(t, repo, &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}})

	got, err := svc.Retrieve(context.Background(), "dog", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertIDs(t, got, 3, 4)
	if got[0].Score() != 0.75 {
		t.Errorf("expected visual-only score 0.75, got %v", got[0].Score())
	}
}

func TestRetrieve_MissingVisualIndexFails(t *testing.T) {
	repo := &mockRepo{errs: map[domain.Modality]error{domain.ModalityVisual: domain.ErrIndexMissing}}
	svc := newTestService(t, repo, &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}})

	_, err := svc.Retrieve(context.Background(), "dog", 2)

	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRetrieve_OCRStoreErrorFails(t *testing.T) {
	repo := &mockRepo{
		results: map[domain.Modality][]retrieval.Candidate{domain.ModalityVisual: {cand(1, 0.1)}},
		errs:    map[domain.Modality]error{domain.ModalityOCR: errors.New("timeout")},
	}
	svc := newTestService(t, repo, &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}})

	_, err := svc.Retrieve(context.Background(), "dog", 2)

	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRetrieve_RecordsUsage(t *testing.T) {
	emb := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 7}}
	svc := newTestService(t, &mockRepo{}, emb)
	ctx, usage := domain.NewContextWithUsage(context.Background())

	if _, err := svc.Retrieve(ctx, "receipt", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.TextTokens != 7 || usage.ImageTokens != 0 {
		t.Errorf("expected 7 text tokens, got %+v", usage)
	}
	if !usage.Used() {
		t.Error("expected usage to be marked")
	}
}

func TestRetrieve_NeverExceedsK(t *testing.T) {
	repo := &mockRepo{results: map[domain.Modality][]retrieval.Candidate{
		domain.ModalityVisual: {cand(1, 0.1), cand(2, 0.2), cand(3, 0.3)},
		domain.ModalityOCR:    {cand(4, 0.1), cand(5, 0.2), cand(6, 0.3)},
	}}
	svc := newTestService(t, repo, &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}})

	got, err := svc.Retrieve(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, got, 1)
}

func TestPoolSize(t *testing.T) {
	for k, want := range map[int]int{1: 2, 10: 20} {
		if got := PoolSize(k); got != want {
			t.Errorf("PoolSize(%d) = %d, want %d", k, got, want)
		}
	}
}

func TestNew_InvalidWeights(t *testing.T) {
	if _, err := New(&mockEmbedder{}, &mockRepo{}, Weights{Text: -1}, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
