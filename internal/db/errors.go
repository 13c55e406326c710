package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op constants name the command or statement for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpHDel        = "HDEL"
	OpGet         = "GET"
	OpSet         = "SET"
	OpIncr        = "INCR"

	OpPgCreateIndex = "CREATE INDEX CONCURRENTLY"
	OpPgDropIndex   = "DROP INDEX CONCURRENTLY"
	OpPgIndexInfo   = "SELECT pg_indexes"
	OpPgSearch      = "SELECT ORDER BY <=>"
	OpPgInsert      = "INSERT"
	OpPgUpdate      = "UPDATE"
	OpPgSelect      = "SELECT"
	OpPgSchema      = "DDL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
