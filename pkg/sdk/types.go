package pixdex

// Modality names a ranking signal.
type Modality string

// Modalities.
const (
	ModalityVisual Modality = "visual"
	ModalityOCR    Modality = "ocr"
)

// Image is a stored image without its vectors.
type Image struct {
	ID     int64
	URL    string
	Hash   string
	Width  int
	Height int
	Text   string // recognized text; empty when none was found
}

// Result is one ranked image.
type Result struct {
	Image        Image
	Score        float64
	Modalities   []Modality
	Distances    map[Modality]float64
	Similarities map[Modality]float64
}

// IndexState is the ANN index build state.
type IndexState string

// Index states.
const (
	IndexNotScheduled IndexState = "not_scheduled"
	IndexScheduled    IndexState = "scheduled"
	IndexBuilding     IndexState = "building"
	IndexBuilt        IndexState = "built"
	IndexFailed       IndexState = "failed"
)
