package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// --- Mocks ---

type mockRetriever struct {
	results []retrieval.Result
	err     error
	k       int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, k int) ([]retrieval.Result, error) {
	m.k = k
	return m.results, m.err
}

type mockCompleter struct {
	reply    string
	err      error
	messages []domain.ChatMessage
}

func (m *mockCompleter) Complete(_ context.Context, msgs []domain.ChatMessage) (string, error) {
	m.messages = msgs
	return m.reply, m.err
}

func sampleResult() retrieval.Result {
	return retrieval.New(
		domain.Item{ID: 12, URL: "http://x/12.png", Width: 640, Height: 480, Text: "EMERGENCY\n  EXIT"},
		0.68,
		map[domain.Modality]float64{domain.ModalityVisual: 0.2, domain.ModalityOCR: 0.5},
		map[domain.Modality]float64{domain.ModalityVisual: 0.8, domain.ModalityOCR: 0.5},
	)
}

// --- Tests ---

func TestAnswer_ComposesPrompt(t *testing.T) {
	r := &mockRetriever{results: []retrieval.Result{sampleResult()}}
	c := &mockCompleter{reply: "It is an exit sign [cite-12]."}
	svc := New(r, c)

	got, err := svc.Answer(context.Background(), " what does the sign say? ", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Completion != c.reply || len(got.Items) != 1 {
		t.Errorf("unexpected answer %+v", got)
	}
	if r.k != 3 {
		t.Errorf("expected k 3, got %d", r.k)
	}
	if len(c.messages) != 2 || c.messages[0].Role != domain.RoleSystem {
		t.Fatalf("unexpected messages %+v", c.messages)
	}
	user := c.messages[1].Content
	for _, want := range []string{
		"Question: what does the sign say?",
		"[cite-12] id: 12",
		"dimensions: 640x480",
		"score: 0.6800",
		"modalities: ocr, visual",
		"text: EMERGENCY EXIT",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestAnswer_Disabled(t *testing.T) {
	svc := New(&mockRetriever{}, nil)
	if svc.Enabled() {
		t.Error("expected disabled")
	}
	_, err := svc.Answer(context.Background(), "q", 3)
	if !errors.Is(err, domain.ErrCompletionUnavailable) {
		t.Errorf("expected ErrCompletionUnavailable, got %v", err)
	}
}

func TestAnswer_RetrievalError(t *testing.T) {
	svc := New(&mockRetriever{err: domain.ErrRetrievalUnavailable}, &mockCompleter{})
	_, err := svc.Answer(context.Background(), "q", 3)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestAnswer_CompletionErrorKeepsItems(t *testing.T) {
	svc := New(&mockRetriever{results: []retrieval.Result{sampleResult()}}, &mockCompleter{err: errors.New("429")})
	got, err := svc.Answer(context.Background(), "q", 3)
	if !errors.Is(err, domain.ErrCompletionUnavailable) {
		t.Errorf("expected ErrCompletionUnavailable, got %v", err)
	}
	if len(got.Items) != 1 {
		t.Error("items should be returned alongside the completion error")
	}
}

func TestFormatContext_Empty(t *testing.T) {
	if got := FormatContext(nil); got != "(no retrieval results available)" {
		t.Errorf("unexpected context %q", got)
	}
}

func TestFormatContext_NoText(t *testing.T) {
	r := retrieval.New(domain.Item{ID: 1}, 0.5,
		map[domain.Modality]float64{domain.ModalityVisual: 0.5},
		map[domain.Modality]float64{domain.ModalityVisual: 0.5})
	got := FormatContext([]retrieval.Result{r})
	if !strings.Contains(got, "text: (no text available)") || !strings.Contains(got, "modalities: visual") {
		t.Errorf("unexpected context %q", got)
	}
}

func TestNormalizeText_Truncates(t *testing.T) {
	long := strings.Repeat("ж", 600)
	got := normalizeText(long)
	if n := utf8.RuneCountInString(got); n != maxTextRunes {
		t.Errorf("expected %d runes, got %d", maxTextRunes, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected ellipsis")
	}

	if got := normalizeText("  a \n\t b "); got != "a b" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
	exact := strings.Repeat("a", maxTextRunes)
	if normalizeText(exact) != exact {
		t.Error("text at the limit must not be truncated")
	}
}
