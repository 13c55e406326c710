package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

func TestLRUEmbedder_HitOnTrimmedText(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}, TotalTokens: 3}}
	e, err := NewLRUEmbedder(inner, 8, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	first, err := e.Embed(ctx, "  stop sign ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Embed(ctx, "stop sign")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.callCount() != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.callCount())
	}
	if inner.texts[0] != "stop sign" {
		t.Errorf("expected trimmed text to reach inner, got %q", inner.texts[0])
	}
	if first.TotalTokens != 3 || second.TotalTokens != 0 {
		t.Errorf("expected tokens 3 then 0, got %d then %d", first.TotalTokens, second.TotalTokens)
	}
	if second.Embedding[0] != 1 || second.Embedding[1] != 2 {
		t.Errorf("unexpected cached vector %v", second.Embedding)
	}
}

func TestLRUEmbedder_ReturnsCopies(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	e, _ := NewLRUEmbedder(inner, 8, nil)
	ctx := context.Background()

	res, _ := e.Embed(ctx, "q")
	res.Embedding[0] = 99

	again, _ := e.Embed(ctx, "q")
	if again.Embedding[0] != 1 {
		t.Errorf("cache entry was mutated through a returned slice: %v", again.Embedding)
	}
}

func TestLRUEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e, _ := NewLRUEmbedder(inner, 2, nil)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "a", "c", "a", "b"} {
		if _, err := e.Embed(ctx, q); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// a, b miss; a hit; c miss evicts b; a hit; b miss
	if inner.callCount() != 4 {
		t.Errorf("expected 4 inner calls, got %d", inner.callCount())
	}
	if e.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", e.Len())
	}
}

func TestLRUEmbedder_ErrorNotCached(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("down")}
	e, _ := NewLRUEmbedder(inner, 2, nil)
	ctx := context.Background()

	for range 2 {
		if _, err := e.Embed(ctx, "q"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.callCount() != 2 {
		t.Errorf("errors must not be cached, got %d calls", inner.callCount())
	}
}

func TestLRUEmbedder_Concurrent(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}}}
	e, _ := NewLRUEmbedder(inner, 4, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := []string{"x", "y", "z"}[i%3]
			if _, err := e.Embed(ctx, q); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if e.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", e.Len())
	}
}

func TestLRUEmbedder_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_lru_total"}, []string{"layer", "result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e, _ := NewLRUEmbedder(inner, 0, counter)
	ctx := context.Background()

	_, _ = e.Embed(ctx, "q")
	_, _ = e.Embed(ctx, "q")

	if got := testutil.ToFloat64(counter.WithLabelValues("lru", "hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("lru", "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
}
