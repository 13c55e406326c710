package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// InsertRow inserts a row and returns the id assigned by the sequence.
func (s *Store) InsertRow(ctx context.Context, table string, row *db.Row) (int64, error) {
	stmt, cols, err := insertSQL(table, row)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, stmt, rowArgs(row, cols)...).Scan(&id); err != nil {
		return 0, &db.Error{Op: db.OpPgInsert, Err: err}
	}
	return id, nil
}

// UpdateRow overwrites the given columns. Nil vectors are written as NULL.
func (s *Store) UpdateRow(ctx context.Context, table string, row *db.Row) error {
	stmt, cols, err := updateSQL(table, row)
	if err != nil {
		return err
	}
	args := append(rowArgs(row, cols), row.ID)
	tag, err := s.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return &db.Error{Op: db.OpPgUpdate, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return db.ErrKeyNotFound
	}
	return nil
}

// GetRow returns the row's scalar columns rendered as strings. Null columns are omitted.
func (s *Store) GetRow(ctx context.Context, table string, id int64) (map[string]string, error) {
	if !db.IsSQLIdentifier(table) {
		return nil, errors.New("invalid table name: " + table)
	}
	stmt := fmt.Sprintf("SELECT (to_jsonb(t) - $2::text[])::text FROM %s t WHERE id = $1", table)

	var raw string
	err := s.pool.QueryRow(ctx, stmt, id, s.vectorColumns(table)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpPgSelect, Err: err}
	}
	return decodeRow(raw)
}

// FindRowID looks up a row id by a scalar column value.
func (s *Store) FindRowID(ctx context.Context, table, column, value string) (int64, error) {
	if !db.IsSQLIdentifier(table) || !db.IsSQLIdentifier(column) {
		return 0, errors.New("invalid identifier")
	}
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE %s = $1 ORDER BY id LIMIT 1", table, column)

	var id int64
	err := s.pool.QueryRow(ctx, stmt, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, db.ErrKeyNotFound
	}
	if err != nil {
		return 0, &db.Error{Op: db.OpPgSelect, Err: err}
	}
	return id, nil
}

func rowArgs(row *db.Row, cols []string) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		if vec, ok := row.Vectors[c]; ok {
			if len(vec) == 0 {
				args[i] = nil
			} else {
				args[i] = pgvector.NewVector(vec)
			}
			continue
		}
		args[i] = row.Values[c]
	}
	return args
}

// decodeRow flattens a jsonb object into strings, keeping integer formatting intact.
func decodeRow(raw string) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}
