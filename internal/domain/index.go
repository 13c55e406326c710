package domain

// DistanceFamily is the metric an ANN index is built for.
type DistanceFamily string

// DistanceCosine is cosine distance (1 - cosine similarity).
const DistanceCosine DistanceFamily = "cosine"

// IndexSpec describes one ANN index. Name is globally unique and is the
// idempotency key for index creation.
type IndexSpec struct {
	Name     string
	Table    string
	Column   string
	Distance DistanceFamily
}

// DefaultIndexSpecs returns the fixed set of ANN indexes, one per modality column.
func DefaultIndexSpecs() []IndexSpec {
	return []IndexSpec{
		{
			Name:     "images_embedding_hnsw_idx",
			Table:    ImagesTable,
			Column:   ColumnEmbedding,
			Distance: DistanceCosine,
		},
		{
			Name:     "images_text_embedding_hnsw_idx",
			Table:    ImagesTable,
			Column:   ColumnTextEmbedding,
			Distance: DistanceCosine,
		},
	}
}

// IndexSpecFor returns the spec covering the modality's column.
func IndexSpecFor(specs []IndexSpec, m Modality) (IndexSpec, bool) {
	for _, s := range specs {
		if s.Column == m.Column() {
			return s, true
		}
	}
	return IndexSpec{}, false
}
