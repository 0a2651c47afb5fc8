package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// EdgeKind enumerates the recognized Code-to-Code edge types used by
// projections and cross-repository comparison.
type EdgeKind string

const (
	EdgeImports   EdgeKind = "IMPORTS"
	EdgeDefines   EdgeKind = "DEFINES"
	EdgeCalls     EdgeKind = "CALLS"
	EdgeContains  EdgeKind = "CONTAINS"
	EdgeDependsOn EdgeKind = "DEPENDS_ON"
)

// UpsertCodeEdge MERGEs a directed edge between two Code nodes in the same
// repository, identified by file path.
func UpsertCodeEdge(ctx context.Context, tx Tx, repoID int, fromPath, toPath string, kind EdgeKind) error {
	_, err := tx.Run(ctx, `
		MATCH (a:Code {repo_id: $repo_id, file_path: $from_path})
		MATCH (b:Code {repo_id: $repo_id, file_path: $to_path})
		MERGE (a)-[:`+string(kind)+`]->(b)
	`, map[string]interface{}{"repo_id": repoID, "from_path": fromPath, "to_path": toPath})
	if err != nil {
		return &Neo4jError{Op: "upsert_code_edge", Err: err}
	}
	return nil
}

// EdgeRecord is a materialized edge returned by projection node/edge loads.
type EdgeRecord struct {
	FromID string
	ToID   string
	Kind   string
}

// LoadRepoEdges returns every edge whose endpoints are both Code or Pattern
// nodes owned by repoID, the edge set underlying the code-repo-{id} and
// pattern-repo-{id} projections.
func LoadRepoEdges(ctx context.Context, s *Store, database string, repoID int) ([]EdgeRecord, error) {
	result, err := s.ExecuteRead(ctx, database, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		cypherResult, err := tx.Run(ctx, `
			MATCH (a)-[rel]->(b)
			WHERE (a:Code OR a:Pattern) AND (b:Code OR b:Pattern)
			  AND a.repo_id = $repo_id AND b.repo_id = $repo_id
			RETURN coalesce(a.file_path, toString(a.pattern_id)) AS from_id,
			       coalesce(b.file_path, toString(b.pattern_id)) AS to_id,
			       type(rel) AS kind
		`, map[string]interface{}{"repo_id": repoID})
		if err != nil {
			return nil, err
		}

		var edges []EdgeRecord
		for cypherResult.Next(ctx) {
			rec := cypherResult.Record()
			fromID, _ := rec.Get("from_id")
			toID, _ := rec.Get("to_id")
			kind, _ := rec.Get("kind")
			edges = append(edges, EdgeRecord{
				FromID: fmt.Sprint(fromID),
				ToID:   fmt.Sprint(toID),
				Kind:   fmt.Sprint(kind),
			})
		}
		return edges, cypherResult.Err()
	})
	if err != nil {
		return nil, err
	}
	edges, _ := result.([]EdgeRecord)
	return edges, nil
}
