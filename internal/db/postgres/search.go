package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// SearchKNN returns the K rows nearest to the query vector by cosine distance.
// A missing table or vector column is reported as db.ErrIndexNotFound.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	stmt, err := knnSQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, stmt, pgvector.NewVector(q.Vector), q.K)
	if err != nil {
		return nil, mapSearchErr(err)
	}
	defer rows.Close()

	result := &db.SearchResult{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpPgSearch, Err: err}
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSearchErr(err)
	}
	result.Total = len(result.Entries)
	return result, nil
}

func mapSearchErr(err error) error {
	switch pgCode(err) {
	case codeUndefinedTable, codeUndefinedColumn:
		return db.ErrIndexNotFound
	}
	return &db.Error{Op: db.OpPgSearch, Err: err}
}

// scanEntry reads id, the requested return fields and the trailing distance column.
func scanEntry(rows pgx.Rows) (db.SearchEntry, error) {
	values, err := rows.Values()
	if err != nil {
		return db.SearchEntry{}, err
	}
	descs := rows.FieldDescriptions()
	if len(values) < 2 {
		return db.SearchEntry{}, fmt.Errorf("unexpected column count %d", len(values))
	}

	id, ok := values[0].(int64)
	if !ok {
		return db.SearchEntry{}, fmt.Errorf("unexpected id type %T", values[0])
	}
	dist, ok := values[len(values)-1].(float64)
	if !ok {
		return db.SearchEntry{}, fmt.Errorf("unexpected distance type %T", values[len(values)-1])
	}

	entry := db.SearchEntry{
		ID:       id,
		Key:      strconv.FormatInt(id, 10),
		Distance: dist,
		Fields:   make(map[string]string, len(values)-2),
	}
	for i := 1; i < len(values)-1; i++ {
		if values[i] == nil {
			continue
		}
		entry.Fields[descs[i].Name] = fmt.Sprint(values[i])
	}
	return entry, nil
}
