package domain

// KeyPrefix namespaces every key written to a Redis/Valkey backend.
const KeyPrefix = "pixdex:"

// ImagesTable is the table (or key namespace) holding ingested images.
const ImagesTable = "images"

// DefaultVectorDimensions matches CLIP ViT-B/32.
const DefaultVectorDimensions = 512

// Item is an ingested image. Retrieval only reads items.
type Item struct {
	ID     int64
	URL    string
	Hash   string
	Width  int
	Height int

	// Embedding is the visual embedding. It is absent only transiently during ingest.
	Embedding []float32
	// Text is the OCR-extracted text; empty when nothing was recognized.
	Text string
	// TextEmbedding embeds Text; nil when Text is empty.
	TextEmbedding []float32
}

// HasText reports whether the item carries OCR text with an embedding.
func (it *Item) HasText() bool {
	return it.Text != "" && len(it.TextEmbedding) > 0
}

// WithoutVectors returns a copy that drops both embeddings (for API output).
func (it Item) WithoutVectors() Item {
	it.Embedding = nil
	it.TextEmbedding = nil
	return it
}
