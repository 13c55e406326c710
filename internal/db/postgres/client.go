package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// Compile-time checks.
var (
	_ db.Store         = (*Store)(nil)
	_ db.SchemaManager = (*Store)(nil)
)

// SQLSTATE codes the store maps to db sentinels.
const (
	codeDuplicateTable  = "42P07"
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// Config holds connection parameters for a Postgres store.
type Config struct {
	DSN      string
	MaxConns int32
}

// pgxPool is the part of *pgxpool.Pool the store runs statements on.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// sessionConn is one server session held for the duration of an index build.
type sessionConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// acquireFunc hands out a dedicated session and its release function.
type acquireFunc func(ctx context.Context) (sessionConn, func(), error)

// Store implements db.Store over Postgres with the pgvector extension.
type Store struct {
	pool    pgxPool
	acquire acquireFunc

	mu         sync.RWMutex
	vectorCols map[string][]string // table -> vector columns, learned from EnsureTable
}

// NewStore opens a connection pool. It does not contact the server.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return newStore(pool, func(ctx context.Context) (sessionConn, func(), error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn, conn.Release, nil
	}), nil
}

func newStore(pool pgxPool, acquire acquireFunc) *Store {
	return &Store{pool: pool, acquire: acquire, vectorCols: make(map[string][]string)}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureTable enables pgvector, creates the table and adds any missing
// columns. Existing columns are left untouched.
func (s *Store) EnsureTable(ctx context.Context, def *db.TableDefinition) error {
	stmts, err := schemaStatements(def)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpPgSchema, Err: err}
		}
	}

	s.mu.Lock()
	s.vectorCols[def.Name] = def.VectorColumns()
	s.mu.Unlock()
	return nil
}

func (s *Store) vectorColumns(table string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cols, ok := s.vectorCols[table]; ok && cols != nil {
		return cols
	}
	// jsonb - NULL yields NULL, so never pass a nil array.
	return []string{}
}

// pgCode returns the SQLSTATE of a server error, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
