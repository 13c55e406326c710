package retrieval

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// Weights are the per-modality blend weights.
type Weights struct {
	Visual float64
	Text   float64
}

// DefaultWeights favors the visual modality.
func DefaultWeights() Weights {
	return Weights{Visual: 0.6, Text: 0.4}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{{"visual", w.Visual}, {"text", w.Text}} {
		if v := p.v; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight must be a finite non-negative number, got %v",
				domain.ErrInvalidInput, p.name, v)
		}
	}
	return nil
}

// For returns the weight of modality m.
func (w Weights) For(m domain.Modality) float64 {
	switch m {
	case domain.ModalityVisual:
		return w.Visual
	case domain.ModalityOCR:
		return w.Text
	default:
		return 0
	}
}

// CandidateEntry is one item's evidence merged across modalities.
type CandidateEntry struct {
	Item         domain.Item
	Distances    map[domain.Modality]float64
	Similarities map[domain.Modality]float64
}

// Fusion blends per-modality candidate lists into one ranked list.
type Fusion struct {
	weights Weights
}

// NewFusion creates a fusion engine with validated weights.
func NewFusion(w Weights) (*Fusion, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Fusion{weights: w}, nil
}

// Weights returns the configured weights.
func (f *Fusion) Weights() Weights { return f.weights }

// Fuse merges candidates by item id, scores each item as the weight-normalized
// mean of its per-modality similarities, and returns the top k by score
// descending with ties broken by id ascending. Absent modalities neither
// contribute nor penalize.
func (f *Fusion) Fuse(lists map[domain.Modality][]retrieval.Candidate, k int) []retrieval.Result {
	if k <= 0 {
		return []retrieval.Result{}
	}
	return rankEntries(mergeCandidates(lists), f.weights, k)
}

// mergeCandidates groups candidates by id. Item attributes come from the
// first modality (in domain.Modalities order) that returned the item; a
// duplicate within one list keeps its smallest distance.
func mergeCandidates(lists map[domain.Modality][]retrieval.Candidate) map[int64]*CandidateEntry {
	entries := make(map[int64]*CandidateEntry)
	for _, m := range domain.Modalities() {
		for _, c := range lists[m] {
			e, ok := entries[c.Item.ID]
			if !ok {
				e = &CandidateEntry{
					Item:         c.Item,
					Distances:    make(map[domain.Modality]float64, 2),
					Similarities: make(map[domain.Modality]float64, 2),
				}
				entries[c.Item.ID] = e
			}
			if d, seen := e.Distances[m]; seen && d <= c.Distance {
				continue
			}
			md := domain.ModalityDistance{Modality: m, Distance: c.Distance}
			e.Distances[md.Modality] = md.Distance
			e.Similarities[md.Modality] = md.Similarity()
		}
	}
	return entries
}

// blend computes Σ sim·w / Σ w over the modalities present in e.
// A zero denominator yields 0. With one modality the similarity is returned
// as is so that single-modality scores equal 1 - distance exactly.
func blend(e *CandidateEntry, w Weights) float64 {
	if len(e.Similarities) == 1 {
		for m, sim := range e.Similarities {
			if w.For(m) == 0 {
				return 0
			}
			return sim
		}
	}

	var num, den float64
	for _, m := range domain.Modalities() {
		sim, ok := e.Similarities[m]
		if !ok {
			continue
		}
		num += sim * w.For(m)
		den += w.For(m)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

type scored struct {
	entry *CandidateEntry
	score float64
}

func rankEntries(entries map[int64]*CandidateEntry, w Weights, k int) []retrieval.Result {
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, scored{entry: e, score: blend(e, w)})
	}
	slices.SortFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.Item.ID, b.entry.Item.ID)
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]retrieval.Result, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, retrieval.New(s.entry.Item, s.score, s.entry.Distances, s.entry.Similarities))
	}
	return out
}
