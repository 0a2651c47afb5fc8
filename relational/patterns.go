package relational

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

// InsertPattern writes a code_patterns row; this is step 1 of the pattern
// storage transaction (the graph node and edges are written by the caller
// via graphstore in the same coordinator scope).
func InsertPattern(ctx context.Context, q Queryer, p Pattern) (int, error) {
	elements, err := marshalJSONB(p.Elements)
	if err != nil {
		return 0, &PostgresError{Op: "insert_pattern", Err: err}
	}

	var id int
	row := q.QueryRow(ctx, `
		INSERT INTO code_patterns (repo_id, pattern_type, language, file_path, sample_content, confidence, embedding, elements, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id
	`, p.RepoID, p.Type, nullableString(p.Language), nullableString(p.FilePath), nullableString(p.SampleContent), p.Confidence,
		vectorLiteral(p.Embedding), elements, p.Success)
	if err := row.Scan(&id); err != nil {
		return 0, &PostgresError{Op: "insert_pattern", Err: err}
	}
	return id, nil
}

// GetPattern loads a pattern row by id.
func GetPattern(ctx context.Context, q Queryer, id int) (*Pattern, error) {
	row := q.QueryRow(ctx, `
		SELECT id, repo_id, pattern_type, COALESCE(language, ''), COALESCE(file_path, ''), COALESCE(sample_content, ''),
		       confidence, embedding::text, elements, success, created_at
		FROM code_patterns WHERE id = $1
	`, id)
	return scanPattern(row)
}

// ListPatternsByRepo returns every pattern originating from a repository,
// used by repository learning and cross-repository candidate collection.
func ListPatternsByRepo(ctx context.Context, q Queryer, repoID int) ([]*Pattern, error) {
	rows, err := q.Query(ctx, `
		SELECT id, repo_id, pattern_type, COALESCE(language, ''), COALESCE(file_path, ''), COALESCE(sample_content, ''),
		       confidence, embedding::text, elements, success, created_at
		FROM code_patterns WHERE repo_id = $1
	`, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPattern(row pgx.Row) (*Pattern, error) {
	var p Pattern
	var embeddingText *string
	var elements []byte
	err := row.Scan(&p.ID, &p.RepoID, &p.Type, &p.Language, &p.FilePath, &p.SampleContent, &p.Confidence,
		&embeddingText, &elements, &p.Success, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &PostgresError{Op: "scan_pattern", Err: err}
	}
	if embeddingText != nil {
		vec, err := parseVector(*embeddingText)
		if err != nil {
			return nil, &PostgresError{Op: "parse_embedding", Err: err}
		}
		p.Embedding = vec
	}
	if len(elements) > 0 {
		_ = json.Unmarshal(elements, &p.Elements)
	}
	return &p, nil
}

// RecordPatternApplication increments pattern_metrics for a pattern
// recommendation that was applied, and optionally accepted.
func RecordPatternApplication(ctx context.Context, q Queryer, patternID int, accepted bool) error {
	acceptedDelta := 0
	if accepted {
		acceptedDelta = 1
	}
	err := q.Exec(ctx, `
		INSERT INTO pattern_metrics (pattern_id, applied_count, accepted_count, last_applied_at)
		VALUES ($1, 1, $2, now())
		ON CONFLICT (pattern_id) DO UPDATE SET
			applied_count = pattern_metrics.applied_count + 1,
			accepted_count = pattern_metrics.accepted_count + $2,
			last_applied_at = now()
	`, patternID, acceptedDelta)
	if err != nil {
		return &PostgresError{Op: "record_pattern_application", Err: err}
	}
	return nil
}

// LinkPatternRelationship records a DERIVED_FROM (or other) relationship
// between two pattern rows, mirroring the graph edge relationally so
// cross-repository queries don't always need a graph round trip.
func LinkPatternRelationship(ctx context.Context, q Queryer, sourceID, relatedID int, relType string, confidence float64) error {
	err := q.Exec(ctx, `
		INSERT INTO pattern_relationships (source_pattern_id, related_pattern_id, relationship_type, confidence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_pattern_id, related_pattern_id, relationship_type) DO UPDATE SET confidence = EXCLUDED.confidence
	`, sourceID, relatedID, relType, confidence)
	if err != nil {
		return &PostgresError{Op: "link_pattern_relationship", Err: err}
	}
	return nil
}
