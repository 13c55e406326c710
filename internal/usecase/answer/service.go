// Package answer generates a grounded answer from retrieval results.
package answer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// maxTextRunes bounds the OCR text quoted per item.
const maxTextRunes = 500

const systemPrompt = "You are a helpful assistant constrained to answer strictly from provided retrieval context."

const instructions = "You are given search results retrieved from an image knowledge base. " +
	"Answer the user's question using only the information present in the context. " +
	"If the context does not contain the answer, respond that the information is unavailable. " +
	"Include citations using the provided [cite-<id>] markers for any referenced facts."

// Answer is the ranked items plus the generated completion.
type Answer struct {
	Items      []retrieval.Result
	Completion string
}

// Service composes retrieval and chat completion.
type Service struct {
	retriever Retriever
	completer domain.Completer
}

// New creates an answer service. completer may be nil when completion is disabled.
func New(retriever Retriever, completer domain.Completer) *Service {
	return &Service{retriever: retriever, completer: completer}
}

// Enabled reports whether completion is configured.
func (s *Service) Enabled() bool { return s.completer != nil }

// Answer retrieves up to k items and asks the completion model to answer
// the query from them only.
func (s *Service) Answer(ctx context.Context, query string, k int) (Answer, error) {
	if s.completer == nil {
		return Answer{}, fmt.Errorf("%w: completion is disabled", domain.ErrCompletionUnavailable)
	}

	items, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return Answer{}, err
	}

	text, err := s.completer.Complete(ctx, BuildMessages(strings.TrimSpace(query), items))
	if err != nil {
		return Answer{Items: items}, fmt.Errorf("%w: %w", domain.ErrCompletionUnavailable, err)
	}
	return Answer{Items: items, Completion: text}, nil
}

// BuildMessages renders the prompt for query over items.
func BuildMessages(query string, items []retrieval.Result) []domain.ChatMessage {
	user := instructions + "\n\nQuestion: " + query + "\n\nContext:\n" + FormatContext(items)
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}

// FormatContext renders one citation-tagged section per item.
func FormatContext(items []retrieval.Result) string {
	if len(items) == 0 {
		return "(no retrieval results available)"
	}

	sections := make([]string, 0, len(items))
	for i := range items {
		r := &items[i]
		it := r.Item()

		mods := make([]string, 0, 2)
		for _, m := range r.Modalities() {
			mods = append(mods, string(m))
		}
		modalities := "none"
		if len(mods) > 0 {
			modalities = strings.Join(mods, ", ")
		}
		text := normalizeText(it.Text)
		if text == "" {
			text = "(no text available)"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "[%s] id: %d\n", Citation(it.ID), it.ID)
		fmt.Fprintf(&b, "url: %s\n", it.URL)
		fmt.Fprintf(&b, "dimensions: %dx%d\n", it.Width, it.Height)
		fmt.Fprintf(&b, "score: %.4f\n", r.Score())
		fmt.Fprintf(&b, "modalities: %s\n", modalities)
		fmt.Fprintf(&b, "text: %s", text)
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

// Citation is the marker the model cites an item with.
func Citation(id int64) string {
	return "cite-" + strconv.FormatInt(id, 10)
}

// normalizeText collapses whitespace and truncates to maxTextRunes,
// ending with an ellipsis when cut.
func normalizeText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(collapsed) <= maxTextRunes {
		return collapsed
	}
	runes := []rune(collapsed)
	return string(runes[:maxTextRunes-1]) + "…"
}
