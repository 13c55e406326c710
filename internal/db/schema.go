package db

import (
	"context"
	"errors"
)

// ColumnType enumerates column kinds a table definition can declare.
type ColumnType int

const (
	// ColumnText is a variable-length string.
	ColumnText ColumnType = iota
	// ColumnInt is a 64-bit integer.
	ColumnInt
	// ColumnVector is a fixed-dimension float32 vector.
	ColumnVector
)

// ColumnDefinition describes one column of a table.
type ColumnDefinition struct {
	Name   string
	Type   ColumnType
	Dim    int // ColumnVector only
	Unique bool
}

// TableDefinition describes a table. The id column is implicit.
type TableDefinition struct {
	Name    string
	Columns []ColumnDefinition
}

// VectorColumns returns the names of all vector columns.
func (t *TableDefinition) VectorColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Type == ColumnVector {
			out = append(out, c.Name)
		}
	}
	return out
}

// Validate checks names and vector dimensions.
func (t *TableDefinition) Validate() error {
	if !IsSQLIdentifier(t.Name) {
		return errors.New("invalid table name: " + t.Name)
	}
	for _, c := range t.Columns {
		if !IsSQLIdentifier(c.Name) {
			return errors.New("invalid column name: " + c.Name)
		}
		if c.Type == ColumnVector && c.Dim <= 0 {
			return errors.New("vector column requires positive dim: " + c.Name)
		}
	}
	return nil
}

// SchemaManager is implemented by backends with a fixed relational schema
// (Postgres). It creates the table and adds missing columns in place.
type SchemaManager interface {
	EnsureTable(ctx context.Context, def *TableDefinition) error
}
