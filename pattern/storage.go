package pattern

import (
	"context"

	"github.com/jackc/pgx/v5"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/txcoord"
)

// Role distinguishes whether the owning repo is the pattern's originating
// source or a target the pattern was applied to, selecting between
// REFERENCE_PATTERN and APPLIED_PATTERN edges.
type Role string

const (
	RoleSource Role = "REFERENCE_PATTERN"
	RoleTarget Role = "APPLIED_PATTERN"
)

// Store writes a pattern through all four steps of §4.4's storage
// contract inside a single transaction scope: the relational row, the
// graph node, the owning-repo edge, and a re-ensured pattern projection.
// Callers open and commit/rollback the scope; Store only performs the
// writes within it.
func Store(ctx context.Context, scope *txcoord.Scope, projections *projection.Manager, p relational.Pattern, sourceFilePath string, role Role) (int, error) {
	id, err := relational.InsertPattern(ctx, relTx{scope}, p)
	if err != nil {
		return 0, err
	}

	node := graphstore.PatternNode{
		PatternID:   id,
		RepoID:      p.RepoID,
		PatternType: string(p.Type),
		Language:    p.Language,
		FilePath:    sourceFilePath,
		Confidence:  p.Confidence,
		Embedding:   p.Embedding,
		Elements:    p.Elements,
	}
	if err := graphstore.UpsertPatternNode(ctx, scope.GraphTx(), node, sourceFilePath); err != nil {
		return 0, err
	}

	if err := graphstore.LinkRepoPattern(ctx, scope.GraphTx(), p.RepoID, id, string(role)); err != nil {
		return 0, err
	}

	scope.TrackRepoChange(p.RepoID)

	if projections != nil {
		projections.InvalidateRepo(ctx, p.RepoID)
		projections.QueueUpdate(p.RepoID)
	}

	return id, nil
}

// relTx adapts a txcoord.Scope's pgx.Tx to relational.Queryer so the pattern
// storage row can be written inside the coordinator's transaction instead
// of a separate implicit one.
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
