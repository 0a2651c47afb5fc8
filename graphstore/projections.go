package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NodeRecord is a materialized node returned by projection node loads,
// carrying just enough to drive similarity comparison and language
// histograms without re-fetching the full row from relational.
type NodeRecord struct {
	ID       string
	Kind     string // "Code" or "Pattern"
	Language string
}

// LoadCodeNodes returns every Code node owned by repoID, the node set for
// the code-repo-{id} projection shape.
func LoadCodeNodes(ctx context.Context, s *Store, database string, repoID int) ([]NodeRecord, error) {
	return loadNodes(ctx, s, database, `
		MATCH (c:Code {repo_id: $repo_id})
		RETURN c.file_path AS id, 'Code' AS kind, coalesce(c.language, '') AS language
	`, map[string]interface{}{"repo_id": repoID})
}

// LoadPatternRepoNodes returns the Pattern nodes owned by repoID plus the
// Code nodes and Repository node in the same repo, the node set for the
// pattern-repo-{id} projection shape.
func LoadPatternRepoNodes(ctx context.Context, s *Store, database string, repoID int) ([]NodeRecord, error) {
	return loadNodes(ctx, s, database, `
		MATCH (n {repo_id: $repo_id})
		WHERE n:Pattern OR n:Code
		RETURN coalesce(n.file_path, toString(n.pattern_id)) AS id,
		       CASE WHEN n:Pattern THEN 'Pattern' ELSE 'Code' END AS kind,
		       coalesce(n.language, '') AS language
		UNION
		MATCH (r:Repository {id: $repo_id})
		RETURN toString(r.id) AS id, 'Repository' AS kind, '' AS language
	`, map[string]interface{}{"repo_id": repoID})
}

// LoadActiveReferenceNodes returns the Code and Pattern nodes belonging to
// either repo, the node set for the active-reference-{a}-{b} projection.
func LoadActiveReferenceNodes(ctx context.Context, s *Store, database string, repoA, repoB int) ([]NodeRecord, error) {
	return loadNodes(ctx, s, database, `
		MATCH (n)
		WHERE (n:Code OR n:Pattern) AND n.repo_id IN [$repo_a, $repo_b]
		RETURN coalesce(n.file_path, toString(n.pattern_id)) AS id,
		       CASE WHEN n:Pattern THEN 'Pattern' ELSE 'Code' END AS kind,
		       coalesce(n.language, '') AS language
	`, map[string]interface{}{"repo_a": repoA, "repo_b": repoB})
}

func loadNodes(ctx context.Context, s *Store, database, cypher string, params map[string]interface{}) ([]NodeRecord, error) {
	result, err := s.ExecuteRead(ctx, database, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		cypherResult, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var nodes []NodeRecord
		for cypherResult.Next(ctx) {
			rec := cypherResult.Record()
			id, _ := rec.Get("id")
			kind, _ := rec.Get("kind")
			language, _ := rec.Get("language")
			nodes = append(nodes, NodeRecord{ID: fmt.Sprint(id), Kind: fmt.Sprint(kind), Language: fmt.Sprint(language)})
		}
		return nodes, cypherResult.Err()
	})
	if err != nil {
		return nil, err
	}
	nodes, _ := result.([]NodeRecord)
	return nodes, nil
}

// DropProjection removes the projection name from the `projections` list
// property of every node that carries it, used by the projection lifecycle's
// drop step; no node is deleted. Projections in this store are not Neo4j GDS
// catalog entries, and no code in this module adds names to that list.
func DropProjection(ctx context.Context, s *Store, database, name string) error {
	_, err := s.ExecuteWrite(ctx, database, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `
			MATCH (n) WHERE $name IN coalesce(n.projections, [])
			SET n.projections = [p IN n.projections WHERE p <> $name]
		`, map[string]interface{}{"name": name})
	})
	return err
}
