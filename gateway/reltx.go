package gateway

import (
	"context"

	"github.com/jackc/pgx/v5"

	"repoanalyzer.dev/txcoord"
)

// relTx adapts a txcoord.Scope's relational transaction to
// relational.Queryer so gateway writes land inside the coordinator's
// transaction rather than a separate implicit one.
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
