package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage tallies the embedding tokens one request spends, split by
// input kind. An upload spends image tokens plus text tokens when OCR finds
// text; a search spends text tokens only.
type EmbeddingUsage struct {
	ImageTokens int
	TextTokens  int
	Calls       int // cache hits count as calls
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddImageTokens records one image embedding call.
func (u *EmbeddingUsage) AddImageTokens(n int) {
	if u != nil {
		u.ImageTokens += n
		u.Calls++
	}
}

// AddTextTokens records one text embedding call.
func (u *EmbeddingUsage) AddTextTokens(n int) {
	if u != nil {
		u.TextTokens += n
		u.Calls++
	}
}

// TotalTokens is the sum over both input kinds.
func (u *EmbeddingUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	return u.ImageTokens + u.TextTokens
}

// Used reports whether any embedding call was made.
func (u *EmbeddingUsage) Used() bool {
	return u != nil && u.Calls > 0
}
