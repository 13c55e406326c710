package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/pixdex/internal/db"
)

// CreateIndex builds an HNSW index with CREATE INDEX CONCURRENTLY so writes
// are not blocked. It runs on a dedicated connection outside any transaction
// with statement_timeout disabled. A leftover invalid index from an earlier
// interrupted build is dropped first, unless another session is still
// building it, in which case the index is reported as db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	stmt, err := createIndexSQL(def)
	if err != nil {
		return err
	}

	conn, release, err := s.acquire(ctx)
	if err != nil {
		return &db.Error{Op: db.OpPgCreateIndex, Err: err}
	}
	defer release()

	if _, err := conn.Exec(ctx, "SET statement_timeout = 0"); err != nil {
		return &db.Error{Op: db.OpPgCreateIndex, Err: err}
	}
	// The connection goes back to the pool afterwards.
	defer conn.Exec(context.WithoutCancel(ctx), "RESET statement_timeout") //nolint:errcheck // best effort

	valid, found, err := indexValidity(ctx, conn, def.Name)
	if err != nil {
		return err
	}
	if found && valid {
		return db.ErrIndexExists
	}
	if found {
		building, err := buildInProgress(ctx, conn, def.Name)
		if err != nil {
			return err
		}
		if building {
			return db.ErrIndexExists
		}
		if _, err := conn.Exec(ctx, "DROP INDEX CONCURRENTLY IF EXISTS "+def.Name); err != nil {
			return &db.Error{Op: db.OpPgDropIndex, Err: err}
		}
	}

	if _, err := conn.Exec(ctx, stmt); err != nil {
		switch pgCode(err) {
		case codeDuplicateTable, codeUniqueViolation:
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpPgCreateIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether a valid index with this name exists.
// An index left invalid by a failed concurrent build counts as absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	valid, found, err := indexValidity(ctx, s.pool, name)
	if err != nil {
		return false, err
	}
	return found && valid, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// buildInProgress reports whether some session is running CREATE INDEX
// CONCURRENTLY for the named index right now.
func buildInProgress(ctx context.Context, q querier, name string) (bool, error) {
	var building bool
	if err := q.QueryRow(ctx, indexBuildingSQL, name).Scan(&building); err != nil {
		return false, &db.Error{Op: db.OpPgIndexInfo, Err: err}
	}
	return building, nil
}

func indexValidity(ctx context.Context, q querier, name string) (valid, found bool, err error) {
	err = q.QueryRow(ctx, indexValidSQL, name).Scan(&valid)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, &db.Error{Op: db.OpPgIndexInfo, Err: err}
	}
	return valid, true, nil
}
