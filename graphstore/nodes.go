package graphstore

import (
	"context"
	"encoding/json"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Tx is satisfied by both neo4j.ManagedTransaction (inside ExecuteWrite) and
// neo4j.ExplicitTransaction (inside a coordinator scope), so node/edge
// writers work in both contexts.
type Tx interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}) (neo4j.ResultWithContext, error)
}

// UpsertRepositoryNode MERGEs the Repository node keyed by its relational id.
func UpsertRepositoryNode(ctx context.Context, tx Tx, repoID int, name string) error {
	_, err := tx.Run(ctx, `
		MERGE (r:Repository {id: $id})
		SET r.name = $name
	`, map[string]interface{}{"id": repoID, "name": name})
	if err != nil {
		return &Neo4jError{Op: "upsert_repository_node", Err: err}
	}
	return nil
}

// CodeNode mirrors a relational code_snippets row for graph traversal.
type CodeNode struct {
	RepoID    int
	FilePath  string
	Language  string
	Type      string
	Embedding []float32
}

// UpsertCodeNode MERGEs a Code node keyed by (repo_id, file_path).
func UpsertCodeNode(ctx context.Context, tx Tx, n CodeNode) error {
	_, err := tx.Run(ctx, `
		MERGE (c:Code {repo_id: $repo_id, file_path: $file_path})
		SET c.language = $language, c.type = $type, c.embedding = $embedding, c.updated_at = datetime()
		WITH c
		MATCH (r:Repository {id: $repo_id})
		MERGE (r)-[:CONTAINS]->(c)
	`, map[string]interface{}{
		"repo_id": n.RepoID, "file_path": n.FilePath,
		"language": n.Language, "type": n.Type, "embedding": toFloat64s(n.Embedding),
	})
	if err != nil {
		return &Neo4jError{Op: "upsert_code_node", Err: err}
	}
	return nil
}

// DeleteCodeNode removes a Code node and its edges.
func DeleteCodeNode(ctx context.Context, tx Tx, repoID int, filePath string) error {
	_, err := tx.Run(ctx, `
		MATCH (c:Code {repo_id: $repo_id, file_path: $file_path})
		DETACH DELETE c
	`, map[string]interface{}{"repo_id": repoID, "file_path": filePath})
	if err != nil {
		return &Neo4jError{Op: "delete_code_node", Err: err}
	}
	return nil
}

// DocumentationNode mirrors a repo_docs row.
type DocumentationNode struct {
	RepoID    int
	DocID     int
	Path      string
	Type      string
	Version   int
	Embedding []float32
}

// UpsertDocumentationNode MERGEs a Documentation node keyed by doc id.
func UpsertDocumentationNode(ctx context.Context, tx Tx, n DocumentationNode) error {
	_, err := tx.Run(ctx, `
		MERGE (d:Documentation {doc_id: $doc_id})
		SET d.repo_id = $repo_id, d.path = $path, d.type = $type, d.version = $version, d.embedding = $embedding
		WITH d
		MATCH (r:Repository {id: $repo_id})
		MERGE (r)-[:CONTAINS]->(d)
	`, map[string]interface{}{
		"doc_id": n.DocID, "repo_id": n.RepoID, "path": n.Path,
		"type": n.Type, "version": n.Version, "embedding": toFloat64s(n.Embedding),
	})
	if err != nil {
		return &Neo4jError{Op: "upsert_documentation_node", Err: err}
	}
	return nil
}

// PatternNode mirrors a code_patterns row.
type PatternNode struct {
	PatternID     int
	RepoID        int
	PatternType   string
	Language      string
	FilePath      string
	Confidence    float64
	Embedding     []float32
	Elements      map[string]interface{}
}

// UpsertPatternNode MERGEs a Pattern node and its EXTRACTED_FROM edge to the
// source Code or Documentation node at sourceFilePath.
func UpsertPatternNode(ctx context.Context, tx Tx, n PatternNode, sourceFilePath string) error {
	_, err := tx.Run(ctx, `
		MERGE (p:Pattern {pattern_id: $pattern_id})
		SET p.repo_id = $repo_id, p.pattern_type = $pattern_type, p.language = $language,
		    p.file_path = $file_path, p.confidence = $confidence, p.embedding = $embedding,
		    p.elements = $elements
		WITH p
		OPTIONAL MATCH (src {repo_id: $repo_id, file_path: $source_path})
		FOREACH (_ IN CASE WHEN src IS NOT NULL THEN [1] ELSE [] END |
			MERGE (p)-[:EXTRACTED_FROM]->(src)
		)
	`, map[string]interface{}{
		"pattern_id": n.PatternID, "repo_id": n.RepoID, "pattern_type": n.PatternType,
		"language": n.Language, "file_path": n.FilePath, "confidence": n.Confidence,
		"embedding": toFloat64s(n.Embedding), "elements": flattenElements(n.Elements),
		"source_path": sourceFilePath,
	})
	if err != nil {
		return &Neo4jError{Op: "upsert_pattern_node", Err: err}
	}
	return nil
}

// LinkRepoPattern attaches REFERENCE_PATTERN (repo is the pattern's source)
// or APPLIED_PATTERN (repo is a target the pattern was applied to).
func LinkRepoPattern(ctx context.Context, tx Tx, repoID, patternID int, relationship string) error {
	_, err := tx.Run(ctx, `
		MATCH (r:Repository {id: $repo_id}), (p:Pattern {pattern_id: $pattern_id})
		MERGE (r)-[:`+relationship+`]->(p)
	`, map[string]interface{}{"repo_id": repoID, "pattern_id": patternID})
	if err != nil {
		return &Neo4jError{Op: "link_repo_pattern", Err: err}
	}
	return nil
}

// UpsertCrossRepositoryPattern writes a CrossRepositoryPattern node owned by
// a synthetic MetaRepository keyed by metaID (a deterministic hash of the
// sorted repo-id tuple), with DERIVED_FROM edges to every source pattern id.
func UpsertCrossRepositoryPattern(ctx context.Context, tx Tx, metaID int, patternID int, patternType, language string, confidence float64, sourcePatternIDs []int) error {
	_, err := tx.Run(ctx, `
		MERGE (m:MetaRepository {id: $meta_id})
		MERGE (cp:CrossRepositoryPattern {pattern_id: $pattern_id})
		SET cp.pattern_type = $pattern_type, cp.language = $language, cp.confidence = $confidence
		MERGE (m)-[:CONTAINS_PATTERN]->(cp)
		WITH cp
		UNWIND $source_ids AS sourceID
		MATCH (src:Pattern {pattern_id: sourceID})
		MERGE (cp)-[:DERIVED_FROM]->(src)
	`, map[string]interface{}{
		"meta_id": metaID, "pattern_id": patternID, "pattern_type": patternType,
		"language": language, "confidence": confidence, "source_ids": toInts(sourcePatternIDs),
	})
	if err != nil {
		return &Neo4jError{Op: "upsert_cross_repository_pattern", Err: err}
	}
	return nil
}

func toFloat64s(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toInts(v []int) []interface{} {
	out := make([]interface{}, len(v))
	for i, n := range v {
		out[i] = n
	}
	return out
}

// flattenElements keeps scalars as-is and JSON-encodes anything nested,
// since Neo4j node properties cannot hold nested maps.
func flattenElements(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, int, int64, float64, bool:
			out[k] = v
		default:
			if encoded, err := json.Marshal(v); err == nil {
				out[k] = string(encoded)
			}
		}
	}
	return out
}
