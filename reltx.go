package main

import (
	"context"

	"github.com/jackc/pgx/v5"

	"repoanalyzer.dev/txcoord"
)

// relTx adapts a txcoord.Scope's relational transaction to
// relational.Queryer, the same small per-package adapter pattern used by
// gateway and pattern, so direct relational reads issued from this
// process's job processor land inside the active scope's transaction.
type relTx struct{ scope *txcoord.Scope }

func (r relTx) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := r.scope.RelTx().Exec(ctx, sql, args...)
	return err
}

func (r relTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return r.scope.RelTx().Query(ctx, sql, args...)
}

func (r relTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return r.scope.RelTx().QueryRow(ctx, sql, args...)
}
