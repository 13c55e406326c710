package retrieval

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

// Candidate is one ANN hit for a single modality.
type Candidate struct {
	Item     domain.Item
	Distance float64
}

// SortCandidates orders candidates ascending by distance, then by id.
func SortCandidates(cs []Candidate) {
	slices.SortFunc(cs, func(a, b Candidate) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Item.ID, b.Item.ID)
	})
}
