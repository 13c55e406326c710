package domain

// Modality is one embedding space used for similarity search.
type Modality string

const (
	// ModalityVisual searches the image embedding column.
	ModalityVisual Modality = "visual"
	// ModalityOCR searches the embedding of OCR-extracted text.
	ModalityOCR Modality = "ocr"
)

// Modalities lists every modality in a fixed order.
func Modalities() []Modality {
	return []Modality{ModalityVisual, ModalityOCR}
}

// Column returns the vector column holding this modality's embeddings.
func (m Modality) Column() string {
	switch m {
	case ModalityVisual:
		return ColumnEmbedding
	case ModalityOCR:
		return ColumnTextEmbedding
	default:
		return ""
	}
}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	return m.Column() != ""
}

// Row column names shared by every backend.
const (
	ColumnID            = "id"
	ColumnURL           = "url"
	ColumnHash          = "hash"
	ColumnWidth         = "width"
	ColumnHeight        = "height"
	ColumnEmbedding     = "embedding"
	ColumnText          = "text"
	ColumnTextEmbedding = "text_embedding"
)

// ModalityDistance is a raw cosine distance produced by one ANN query.
// Distance is in [0, 2]; similarity is 1 - distance.
type ModalityDistance struct {
	Modality Modality
	Distance float64
}

// Similarity converts the distance to a cosine similarity in [-1, 1].
func (d ModalityDistance) Similarity() float64 {
	return 1 - d.Distance
}
