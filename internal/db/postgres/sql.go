package postgres

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/pixdex/internal/db"
)

func schemaStatements(def *db.TableDefinition) ([]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY)", def.Name),
	}
	for _, c := range def.Columns {
		typ := columnSQLType(c)
		if c.Unique {
			typ += " UNIQUE"
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", def.Name, c.Name, typ))
	}
	return stmts, nil
}

func columnSQLType(c db.ColumnDefinition) string {
	switch c.Type {
	case db.ColumnInt:
		return "BIGINT"
	case db.ColumnVector:
		return "vector(" + strconv.Itoa(c.Dim) + ")"
	default:
		return "TEXT"
	}
}

// opClass maps a distance metric to the pgvector operator class. Only
// cosine is indexed, matching the <=> operator of knnSQL.
func opClass(d db.DistanceMetric) (string, error) {
	if d != db.DistanceCosine && d != "" {
		return "", fmt.Errorf("unsupported distance metric %q", d)
	}
	return "vector_cosine_ops", nil
}

// createIndexSQL renders CREATE INDEX CONCURRENTLY for the definition's vector field.
func createIndexSQL(def *db.IndexDefinition) (string, error) {
	if !db.IsSQLIdentifier(def.Name) {
		return "", errors.New("invalid index name: " + def.Name)
	}
	if !db.IsSQLIdentifier(def.Table) {
		return "", errors.New("invalid table name: " + def.Table)
	}
	f, ok := def.VectorField()
	if !ok {
		return "", errors.New("index has no vector field")
	}
	if !db.IsSQLIdentifier(f.Name) {
		return "", errors.New("invalid column name: " + f.Name)
	}
	if f.VectorAlgo != db.VectorHNSW && f.VectorAlgo != "" {
		return "", errors.New("unsupported vector algorithm: " + string(f.VectorAlgo))
	}
	class, err := opClass(f.VectorDistance)
	if err != nil {
		return "", err
	}

	var with []string
	if f.VectorM > 0 {
		with = append(with, "m = "+strconv.Itoa(f.VectorM))
	}
	if f.VectorEFConstruct > 0 {
		with = append(with, "ef_construction = "+strconv.Itoa(f.VectorEFConstruct))
	}

	stmt := fmt.Sprintf("CREATE INDEX CONCURRENTLY IF NOT EXISTS %s ON %s USING hnsw (%s %s)",
		def.Name, def.Table, f.Name, class)
	if len(with) > 0 {
		stmt += " WITH (" + strings.Join(with, ", ") + ")"
	}
	return stmt, nil
}

const indexValidSQL = `SELECT i.indisvalid
FROM pg_class c
JOIN pg_index i ON i.indexrelid = c.oid
WHERE c.relname = $1`

const indexBuildingSQL = `SELECT EXISTS (
	SELECT 1 FROM pg_stat_progress_create_index p
	JOIN pg_class c ON c.oid = p.index_relid
	WHERE c.relname = $1)`

// knnSQL renders the cosine nearest-neighbour query. Rows with a null vector are excluded.
// $1 is the query vector, $2 the limit.
func knnSQL(q *db.KNNQuery) (string, error) {
	if !db.IsSQLIdentifier(q.Table) {
		return "", errors.New("invalid table name: " + q.Table)
	}
	if !db.IsSQLIdentifier(q.VectorField) {
		return "", errors.New("invalid vector field: " + q.VectorField)
	}
	cols := []string{"id"}
	for _, f := range q.ReturnFields {
		if !db.IsSQLIdentifier(f) {
			return "", errors.New("invalid return field: " + f)
		}
		if f != "id" {
			cols = append(cols, f)
		}
	}
	return fmt.Sprintf(
		"SELECT %s, %s <=> $1::vector AS distance FROM %s WHERE %s IS NOT NULL ORDER BY %s <=> $1::vector LIMIT $2",
		strings.Join(cols, ", "), q.VectorField, q.Table, q.VectorField, q.VectorField,
	), nil
}

// insertSQL renders an INSERT with columns in sorted order and returns the column order.
func insertSQL(table string, row *db.Row) (string, []string, error) {
	cols, err := rowColumns(table, row)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", table), nil, nil
	}
	ph := make([]string, len(cols))
	for i, c := range cols {
		ph[i] = placeholder(i+1, isVector(row, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(ph, ", ")), cols, nil
}

// updateSQL renders an UPDATE ... WHERE id = $n; the id is the last argument.
func updateSQL(table string, row *db.Row) (string, []string, error) {
	cols, err := rowColumns(table, row)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, errors.New("nothing to update")
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = " + placeholder(i+1, isVector(row, c))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		table, strings.Join(sets, ", "), len(cols)+1), cols, nil
}

func rowColumns(table string, row *db.Row) ([]string, error) {
	if !db.IsSQLIdentifier(table) {
		return nil, errors.New("invalid table name: " + table)
	}
	cols := make([]string, 0, len(row.Values)+len(row.Vectors))
	for c := range row.Values {
		cols = append(cols, c)
	}
	for c := range row.Vectors {
		if _, dup := row.Values[c]; dup {
			return nil, errors.New("column set as value and vector: " + c)
		}
		cols = append(cols, c)
	}
	for _, c := range cols {
		if !db.IsSQLIdentifier(c) || c == "id" {
			return nil, errors.New("invalid column name: " + c)
		}
	}
	sort.Strings(cols)
	return cols, nil
}

func isVector(row *db.Row, col string) bool {
	_, ok := row.Vectors[col]
	return ok
}

func placeholder(n int, vector bool) string {
	p := "$" + strconv.Itoa(n)
	if vector {
		p += "::vector"
	}
	return p
}
