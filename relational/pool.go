// Package relational wraps the pgvector-enabled PostgreSQL store: the
// repositories, code_snippets, repo_docs, and pattern tables that hold the
// source-of-truth rows for every entity also mirrored into the graph store.
package relational

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"repoanalyzer.dev/config"
)

// Store wraps a pgx connection pool with the query helpers the repository
// types build on.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the pool and verifies connectivity.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, &PostgresError{Op: "open_pool", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &PostgresError{Op: "ping", Err: err}
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool. Idempotent: calling Close twice is safe since
// pgxpool.Pool.Close itself tolerates repeat calls.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for the transaction coordinator, which
// needs to Begin a pgx.Tx directly.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Exec runs a statement outside of any explicit transaction scope.
func (s *Store) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return &PostgresError{Op: "exec", Err: err}
	}
	return nil
}

// Query runs a query outside of any explicit transaction scope.
func (s *Store) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &PostgresError{Op: "query", Err: err}
	}
	return rows, nil
}

// QueryRow runs a single-row query outside of any explicit transaction scope.
func (s *Store) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return s.pool.QueryRow(ctx, sql, args...)
}

// PostgresError tags a relational-store failure for classification by the
// retry manager and reporting by health.
type PostgresError struct {
	Op  string
	Err error
}

func (e *PostgresError) Error() string {
	return fmt.Sprintf("postgres: %s: %v", e.Op, e.Err)
}

func (e *PostgresError) Unwrap() error { return e.Err }
