package relational

import (
	"encoding/json"
	"errors"

	"context"

	"github.com/jackc/pgx/v5"
)

// UpsertCodeSnippet writes the (repo_id, file_path) row, replacing AST,
// embedding, and enriched features on re-parse.
func UpsertCodeSnippet(ctx context.Context, q Queryer, s CodeSnippet) (int, error) {
	features, err := marshalJSONB(s.EnrichedFeatures)
	if err != nil {
		return 0, &PostgresError{Op: "upsert_code_snippet", Err: err}
	}

	var id int
	row := q.QueryRow(ctx, `
		INSERT INTO code_snippets (repo_id, file_path, ast, embedding, enriched_features, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (repo_id, file_path) DO UPDATE SET
			ast = EXCLUDED.ast,
			embedding = EXCLUDED.embedding,
			enriched_features = EXCLUDED.enriched_features,
			updated_at = now()
		RETURNING id
	`, s.RepoID, s.FilePath, nullableString(s.AST), vectorLiteral(s.Embedding), features)
	if err := row.Scan(&id); err != nil {
		return 0, &PostgresError{Op: "upsert_code_snippet", Err: err}
	}
	return id, nil
}

// GetCodeSnippet loads a snippet by (repo_id, file_path).
func GetCodeSnippet(ctx context.Context, q Queryer, repoID int, filePath string) (*CodeSnippet, error) {
	row := q.QueryRow(ctx, `
		SELECT id, repo_id, file_path, COALESCE(ast, ''), embedding::text, enriched_features, updated_at
		FROM code_snippets WHERE repo_id = $1 AND file_path = $2
	`, repoID, filePath)
	return scanCodeSnippet(row)
}

func scanCodeSnippet(row pgx.Row) (*CodeSnippet, error) {
	var s CodeSnippet
	var embeddingText *string
	var features []byte
	if err := row.Scan(&s.ID, &s.RepoID, &s.FilePath, &s.AST, &embeddingText, &features, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &PostgresError{Op: "scan_code_snippet", Err: err}
	}
	if embeddingText != nil {
		vec, err := parseVector(*embeddingText)
		if err != nil {
			return nil, &PostgresError{Op: "parse_embedding", Err: err}
		}
		s.Embedding = vec
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &s.EnrichedFeatures); err != nil {
			return nil, &PostgresError{Op: "unmarshal_features", Err: err}
		}
	}
	return &s, nil
}

func marshalJSONB(v map[string]interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
