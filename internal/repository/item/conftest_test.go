package item

import (
	"context"
	"testing"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertRowFn   func(ctx context.Context, table string, row *db.Row) (int64, error)
	updateRowFn   func(ctx context.Context, table string, row *db.Row) error
	getRowFn      func(ctx context.Context, table string, id int64) (map[string]string, error)
	findRowIDFn   func(ctx context.Context, table, column, value string) (int64, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) InsertRow(ctx context.Context, table string, row *db.Row) (int64, error) {
	if m.insertRowFn != nil {
		return m.insertRowFn(ctx, table, row)
	}
	return 1, nil
}

func (m *mockStore) UpdateRow(ctx context.Context, table string, row *db.Row) error {
	if m.updateRowFn != nil {
		return m.updateRowFn(ctx, table, row)
	}
	return nil
}

func (m *mockStore) GetRow(ctx context.Context, table string, id int64) (map[string]string, error) {
	if m.getRowFn != nil {
		return m.getRowFn(ctx, table, id)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) FindRowID(ctx context.Context, table, column, value string) (int64, error) {
	if m.findRowIDFn != nil {
		return m.findRowIDFn(ctx, table, column, value)
	}
	return 0, db.ErrKeyNotFound
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// schemaStore adds the optional schema capability.
type schemaStore struct {
	mockStore
	tables []*db.TableDefinition
}

func (s *schemaStore) EnsureTable(_ context.Context, def *db.TableDefinition) error {
	s.tables = append(s.tables, def)
	return nil
}

func newTestRepo(t *testing.T, prefix string) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, Config{Dimensions: 4, IndexPrefix: prefix}), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}
