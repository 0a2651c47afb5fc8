package relational

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
)

// InsertDoc writes a new repo_docs row at version 1.
func InsertDoc(ctx context.Context, q Queryer, d Doc) (int, error) {
	metadata, err := marshalJSONB(d.Metadata)
	if err != nil {
		return 0, &PostgresError{Op: "insert_doc", Err: err}
	}
	quality, err := marshalJSONB(d.QualityMetrics)
	if err != nil {
		return 0, &PostgresError{Op: "insert_doc", Err: err}
	}

	var id int
	row := q.QueryRow(ctx, `
		INSERT INTO repo_docs (file_path, content, doc_type, version, cluster_id, related_code_path, embedding, metadata, quality_metrics, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8, now(), now())
		RETURNING id
	`, d.FilePath, d.Content, d.Kind, d.ClusterID, nullableString(d.RelatedCodePath), vectorLiteral(d.Embedding), metadata, quality)
	if err := row.Scan(&id); err != nil {
		return 0, &PostgresError{Op: "insert_doc", Err: err}
	}
	return id, nil
}

// UpdateDocContent bumps a doc's version, overwrites current content, and
// appends the prior content to doc_versions via RecordDocVersion (called
// separately so the caller can supply a change summary).
func UpdateDocContent(ctx context.Context, q Queryer, docID int, content string, embedding []float32) (int, error) {
	var version int
	row := q.QueryRow(ctx, `
		UPDATE repo_docs SET content = $2, embedding = $3, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version
	`, docID, content, vectorLiteral(embedding))
	if err := row.Scan(&version); err != nil {
		return 0, &PostgresError{Op: "update_doc_content", Err: err}
	}
	return version, nil
}

// RecordDocVersion appends an immutable doc_versions row.
func RecordDocVersion(ctx context.Context, q Queryer, docID int, content string, version int, changesSummary string) error {
	err := q.Exec(ctx, `
		INSERT INTO doc_versions (doc_id, content, version, changes_summary, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (doc_id, version) DO NOTHING
	`, docID, content, version, nullableString(changesSummary))
	if err != nil {
		return &PostgresError{Op: "record_doc_version", Err: err}
	}
	return nil
}

// GetDoc loads a document row by id.
func GetDoc(ctx context.Context, q Queryer, id int) (*Doc, error) {
	row := q.QueryRow(ctx, `
		SELECT id, file_path, content, doc_type, version, cluster_id, COALESCE(related_code_path, ''),
		       embedding::text, metadata, quality_metrics, created_at, updated_at
		FROM repo_docs WHERE id = $1
	`, id)
	return scanDoc(row)
}

func scanDoc(row pgx.Row) (*Doc, error) {
	var d Doc
	var embeddingText *string
	var metadata, quality []byte
	err := row.Scan(&d.ID, &d.FilePath, &d.Content, &d.Kind, &d.Version, &d.ClusterID, &d.RelatedCodePath,
		&embeddingText, &metadata, &quality, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &PostgresError{Op: "scan_doc", Err: err}
	}
	if embeddingText != nil {
		vec, err := parseVector(*embeddingText)
		if err != nil {
			return nil, &PostgresError{Op: "parse_embedding", Err: err}
		}
		d.Embedding = vec
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &d.Metadata)
	}
	if len(quality) > 0 {
		_ = json.Unmarshal(quality, &d.QualityMetrics)
	}
	return &d, nil
}

// UpsertDocRelation links a doc to a repo, idempotent under (repo_id, doc_id)
// per spec.md's share_docs_with_repo contract.
func UpsertDocRelation(ctx context.Context, q Queryer, repoID, docID int, isPrimary bool) error {
	err := q.Exec(ctx, `
		INSERT INTO repo_doc_relations (repo_id, doc_id, is_primary, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (repo_id, doc_id) DO UPDATE SET is_primary = EXCLUDED.is_primary
	`, repoID, docID, isPrimary)
	if err != nil {
		return &PostgresError{Op: "upsert_doc_relation", Err: err}
	}
	return nil
}

// ShareDocsWithRepo bulk-inserts non-primary relations for doc_ids.
func ShareDocsWithRepo(ctx context.Context, q Queryer, docIDs []int, targetRepoID int) error {
	for _, docID := range docIDs {
		if err := UpsertDocRelation(ctx, q, targetRepoID, docID, false); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDocCluster inserts a new doc cluster row and returns its id. Names
// are not unique: an existing cluster with the same name is neither looked
// up nor updated.
func UpsertDocCluster(ctx context.Context, q Queryer, c DocCluster) (int, error) {
	metadata, err := marshalJSONB(c.Metadata)
	if err != nil {
		return 0, &PostgresError{Op: "upsert_doc_cluster", Err: err}
	}
	var id int
	row := q.QueryRow(ctx, `
		INSERT INTO doc_clusters (name, description, metadata, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id
	`, c.Name, nullableString(c.Description), metadata)
	if err := row.Scan(&id); err != nil {
		return 0, &PostgresError{Op: "upsert_doc_cluster", Err: err}
	}
	return id, nil
}
