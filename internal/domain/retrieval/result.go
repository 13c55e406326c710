// Package retrieval holds the ranked output of a hybrid image search.
package retrieval

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// Result is one ranked item. It is immutable: accessors return copies.
type Result struct {
	item         domain.Item
	score        float64
	modalities   []domain.Modality
	distances    map[domain.Modality]float64
	similarities map[domain.Modality]float64
}

// New creates a result. Modalities are sorted; maps and slices are copied.
func New(
	item domain.Item, score float64,
	distances, similarities map[domain.Modality]float64,
) Result {
	modalities := slices.Collect(maps.Keys(distances))
	slices.Sort(modalities)
	return Result{
		item:         item.WithoutVectors(),
		score:        score,
		modalities:   modalities,
		distances:    maps.Clone(distances),
		similarities: maps.Clone(similarities),
	}
}

// ID returns the item identifier.
func (r *Result) ID() int64 { return r.item.ID }

// Item returns the resolved item attributes (without vectors).
func (r *Result) Item() domain.Item { return r.item }

// Score returns the blended score.
func (r *Result) Score() float64 { return r.score }

// Modalities returns the contributing modalities in ascending order.
func (r *Result) Modalities() []domain.Modality { return slices.Clone(r.modalities) }

// Distances returns the per-modality cosine distances.
func (r *Result) Distances() map[domain.Modality]float64 { return maps.Clone(r.distances) }

// Similarities returns the per-modality similarities (1 - distance).
func (r *Result) Similarities() map[domain.Modality]float64 { return maps.Clone(r.similarities) }
