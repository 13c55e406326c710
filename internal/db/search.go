package db

// KNNQuery is the input for vector similarity search.
//
// IndexName addresses the FT index on Redis/Valkey; Table and VectorField
// address the column on Postgres. Rows whose VectorField is null never match.
type KNNQuery struct {
	IndexName    string
	Table        string
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single row hit. Distance is the raw cosine distance.
type SearchEntry struct {
	ID       int64
	Key      string
	Distance float64
	Fields   map[string]string
}
