package db

import (
	"context"
	"time"
)

// Store is the vector store facade every backend implements.
//
//nolint:interfacebloat // consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	RowStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// KVStore is implemented by backends that also offer plain key-value access
// (Redis/Valkey). The embedding cache uses it when available.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Row is one stored record: scalar values plus named vectors.
// A nil or empty vector means the column is null.
type Row struct {
	ID      int64
	Values  map[string]any
	Vectors map[string][]float32
}

// RowStore persists rows in a table (or key namespace).
type RowStore interface {
	// InsertRow stores a new row and returns its allocated id.
	InsertRow(ctx context.Context, table string, row *Row) (int64, error)
	// UpdateRow overwrites the given values and vectors of an existing row.
	// A nil vector in row.Vectors clears that column.
	UpdateRow(ctx context.Context, table string, row *Row) error
	// GetRow returns the scalar fields of a row rendered as strings.
	GetRow(ctx context.Context, table string, id int64) (map[string]string, error)
	// FindRowID looks up a row id by a unique scalar column.
	FindRowID(ctx context.Context, table, column, value string) (int64, error)
}

// IndexManager provides ANN index lifecycle operations.
type IndexManager interface {
	// CreateIndex builds an index without blocking concurrent writes.
	// It may run for a long time; it returns ErrIndexExists if another
	// creator won the race.
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// IndexExists reports whether a usable index with this name exists.
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides vector similarity search.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
