// Package graphstore wraps the Neo4j-backed graph of Repository, Code,
// Documentation, and Pattern nodes, plus the named subgraph projections
// the projection lifecycle manager ensures and invalidates.
package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"repoanalyzer.dev/config"
)

// Store wraps a neo4j.DriverWithContext.
type Store struct {
	driver neo4j.DriverWithContext
}

// Open creates the driver and verifies connectivity.
func Open(ctx context.Context, cfg config.Neo4jConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, &Neo4jError{Op: "new_driver", Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &Neo4jError{Op: "verify_connectivity", Err: err}
	}
	return &Store{driver: driver}, nil
}

// Close releases the driver. Idempotent: the underlying driver tolerates
// repeated Close calls.
func (s *Store) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return &Neo4jError{Op: "close", Err: err}
	}
	return nil
}

func (s *Store) writeSession(ctx context.Context, database string) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: database})
}

func (s *Store) readSession(ctx context.Context, database string) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: database})
}

// ExecuteWrite runs fn inside a managed write transaction on its own
// session. Used for graph work outside a coordinator-owned Tx.
func (s *Store) ExecuteWrite(ctx context.Context, database string, fn func(tx neo4j.ManagedTransaction) (interface{}, error)) (interface{}, error) {
	session := s.writeSession(ctx, database)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, fn)
	if err != nil {
		return nil, &Neo4jError{Op: "execute_write", Err: err}
	}
	return result, nil
}

// ExecuteRead runs fn inside a managed read transaction.
func (s *Store) ExecuteRead(ctx context.Context, database string, fn func(tx neo4j.ManagedTransaction) (interface{}, error)) (interface{}, error) {
	session := s.readSession(ctx, database)
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, fn)
	if err != nil {
		return nil, &Neo4jError{Op: "execute_read", Err: err}
	}
	return result, nil
}

// BeginTx opens an explicit transaction on a new session, for use by the
// transaction coordinator which needs Commit/Rollback control spanning a
// scope rather than a single managed callback.
func (s *Store) BeginTx(ctx context.Context, database string) (neo4j.ExplicitTransaction, neo4j.SessionWithContext, error) {
	session := s.writeSession(ctx, database)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, nil, &Neo4jError{Op: "begin_transaction", Err: err}
	}
	return tx, session, nil
}

// Neo4jError tags a graph-store failure for classification by the retry
// manager and reporting by health.
type Neo4jError struct {
	Op  string
	Err error
}

func (e *Neo4jError) Error() string { return fmt.Sprintf("neo4j: %s: %v", e.Op, e.Err) }
func (e *Neo4jError) Unwrap() error  { return e.Err }
