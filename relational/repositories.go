package relational

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Queryer is satisfied by *Store and by a transaction handle, so repository
// methods work identically inside and outside a coordinator-owned scope.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UpsertRepository inserts a repository by name or returns its existing id,
// refreshing source_url/kind/active_repo_id and last_updated on conflict.
func UpsertRepository(ctx context.Context, q Queryer, name, sourceURL string, kind RepoKind, activeRepoID *int) (int, error) {
	var id int
	row := q.QueryRow(ctx, `
		INSERT INTO repositories (repo_name, source_url, repo_type, active_repo_id, last_updated)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (repo_name) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			repo_type = EXCLUDED.repo_type,
			active_repo_id = EXCLUDED.active_repo_id,
			last_updated = now()
		RETURNING id
	`, name, nullableString(sourceURL), kind, activeRepoID)
	if err := row.Scan(&id); err != nil {
		return 0, &PostgresError{Op: "upsert_repository", Err: err}
	}
	return id, nil
}

// GetRepository loads a repository by id.
func GetRepository(ctx context.Context, q Queryer, id int) (*Repository, error) {
	row := q.QueryRow(ctx, `
		SELECT id, repo_name, COALESCE(source_url, ''), repo_type, active_repo_id, last_updated
		FROM repositories WHERE id = $1
	`, id)
	var r Repository
	if err := row.Scan(&r.ID, &r.Name, &r.SourceURL, &r.Kind, &r.ActiveRepoID, &r.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &PostgresError{Op: "get_repository", Err: err}
	}
	return &r, nil
}

// GetRepositoryByName loads a repository by its unique name.
func GetRepositoryByName(ctx context.Context, q Queryer, name string) (*Repository, error) {
	row := q.QueryRow(ctx, `
		SELECT id, repo_name, COALESCE(source_url, ''), repo_type, active_repo_id, last_updated
		FROM repositories WHERE repo_name = $1
	`, name)
	var r Repository
	if err := row.Scan(&r.ID, &r.Name, &r.SourceURL, &r.Kind, &r.ActiveRepoID, &r.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &PostgresError{Op: "get_repository_by_name", Err: err}
	}
	return &r, nil
}

// DeleteRepository cascades to snippets, doc relations, and patterns via the
// FK ON DELETE CASCADE constraints in Schema.
func DeleteRepository(ctx context.Context, q Queryer, id int) error {
	if err := q.Exec(ctx, `DELETE FROM repositories WHERE id = $1`, id); err != nil {
		return &PostgresError{Op: "delete_repository", Err: err}
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
