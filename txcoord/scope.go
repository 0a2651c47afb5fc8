// Package txcoord provides the atomic-enough unit of work spanning the
// relational store, the graph store, and the cache invalidation set.
package txcoord

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/relational"
)

// InvalidationPattern is a cache key-pattern queued for post-commit
// invalidation, e.g. "repo:42:*".
type InvalidationPattern string

// Invalidator is implemented by the cache coordinator; txcoord depends only
// on this narrow interface to avoid importing the cache package directly.
type Invalidator interface {
	InvalidatePattern(ctx context.Context, pattern string) error
}

// Coordinator opens Scopes. It holds a single mutex around scope start
// (OpenScope) to prevent interleaving of backend-session acquisition, per §4.1.
type Coordinator struct {
	relStore   *relational.Store
	graphStore *graphstore.Store
	graphDB    string
	invalidate Invalidator
	log        *logging.Scoped

	mu sync.Mutex
}

// New builds a Coordinator over the two backend stores.
func New(relStore *relational.Store, graphStore *graphstore.Store, graphDatabase string, invalidate Invalidator, log *logging.Scoped) *Coordinator {
	return &Coordinator{
		relStore:   relStore,
		graphStore: graphStore,
		graphDB:    graphDatabase,
		invalidate: invalidate,
		log:        log.With(map[string]interface{}{"component": "txcoord"}),
	}
}

// Scope is a single logical transaction spanning both backends. Obtained via
// Coordinator.OpenScope and must be closed by exactly one of Commit or
// Rollback on every exit path.
type Scope struct {
	coord *Coordinator

	relTx   pgx.Tx
	graphTx neo4j.ExplicitTransaction
	session neo4j.SessionWithContext

	invalidateOnCommit bool
	affectedRepos      map[int]struct{}
	affectedCaches     map[string]struct{}

	closed bool
}

// OpenScope begins a relational transaction and a graph transaction. Both
// must begin successfully; if the graph side fails after the relational
// side opened, the relational transaction is rolled back before returning.
func (c *Coordinator) OpenScope(ctx context.Context, invalidateCache bool) (*Scope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	relTx, err := c.relStore.Pool().Begin(ctx)
	if err != nil {
		return nil, &relational.PostgresError{Op: "begin_scope", Err: err}
	}

	graphTx, session, err := c.graphStore.BeginTx(ctx, c.graphDB)
	if err != nil {
		_ = relTx.Rollback(ctx)
		return nil, err
	}

	return &Scope{
		coord:              c,
		relTx:              relTx,
		graphTx:            graphTx,
		session:            session,
		invalidateOnCommit: invalidateCache,
		affectedRepos:      make(map[int]struct{}),
		affectedCaches:     make(map[string]struct{}),
	}, nil
}

// RelTx exposes the relational transaction handle to repository helpers.
func (s *Scope) RelTx() pgx.Tx { return s.relTx }

// GraphTx exposes the graph transaction handle to node/edge writers.
func (s *Scope) GraphTx() neo4j.ExplicitTransaction { return s.graphTx }

// TrackRepoChange records a repo id whose associated cache keys
// ("repo:{id}:*", "graph:{id}:*") will be invalidated on commit.
func (s *Scope) TrackRepoChange(repoID int) {
	s.affectedRepos[repoID] = struct{}{}
}

// TrackCacheInvalidation records a free-form cache-family name to invalidate
// on commit, independent of any repo id.
func (s *Scope) TrackCacheInvalidation(name string) {
	s.affectedCaches[name] = struct{}{}
}

// Commit commits the relational transaction first, then the graph
// transaction. On graph failure it attempts a compensating rollback of the
// relational transaction; if that also fails it surfaces PartialCommit
// naming both errors. On success it invalidates tracked cache keys
// (advisory: CacheError here is logged and swallowed, never propagated).
func (s *Scope) Commit(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("txcoord: scope already closed")
	}
	defer s.release(ctx)

	if err := s.relTx.Commit(ctx); err != nil {
		_ = s.graphTx.Rollback(ctx)
		return &relational.PostgresError{Op: "commit", Err: err}
	}

	if err := s.graphTx.Commit(ctx); err != nil {
		if rbErr := rollbackRelational(ctx, s.relTx); rbErr != nil {
			return &PartialCommit{
				RelationalCommitted: true,
				GraphErr:            err,
				CompensationErr:     rbErr,
			}
		}
		return &PartialCommit{
			RelationalCommitted: true,
			RelationalRolledBack: true,
			GraphErr:             err,
		}
	}

	if s.invalidateOnCommit {
		s.invalidateCaches(ctx)
	}
	return nil
}

// Rollback rolls back both backends. Best-effort: failures are logged, not
// re-raised, matching §4.1's rollback contract.
func (s *Scope) Rollback(ctx context.Context) {
	if s.closed {
		return
	}
	defer s.release(ctx)

	if err := s.relTx.Rollback(ctx); err != nil {
		s.coord.log.WithError(err).Warn("relational rollback failed")
	}
	if err := s.graphTx.Rollback(ctx); err != nil {
		s.coord.log.WithError(err).Warn("graph rollback failed")
	}
}

func (s *Scope) release(ctx context.Context) {
	s.closed = true
	s.session.Close(ctx)
}

// rollbackRelational attempts the compensating rollback §4.1 calls for when
// the graph commit fails after the relational commit already succeeded.
// Once a pgx transaction has committed, a further Rollback call itself
// fails (the transaction is closed) — this mirrors the real split-brain
// risk the spec names rather than hiding it: the caller sees
// RelationalRolledBack=false and a CompensationErr to act on.
func rollbackRelational(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

func (s *Scope) invalidateCaches(ctx context.Context) {
	if s.coord.invalidate == nil {
		return
	}
	for repoID := range s.affectedRepos {
		for _, pattern := range []string{
			fmt.Sprintf("repo:%d:*", repoID),
			fmt.Sprintf("graph:%d:*", repoID),
		} {
			if err := s.coord.invalidate.InvalidatePattern(ctx, pattern); err != nil {
				s.coord.log.WithError(err).Warn("cache invalidation failed, advisory only")
			}
		}
	}
	for name := range s.affectedCaches {
		if err := s.coord.invalidate.InvalidatePattern(ctx, name); err != nil {
			s.coord.log.WithError(err).Warn("cache invalidation failed, advisory only")
		}
	}
}

// PartialCommit surfaces the split-brain case where the relational side
// committed but the graph side failed. RelationalRolledBack distinguishes a
// successful compensating rollback (caller may retry the graph write) from a
// failed one (caller must mark the repository for reconciliation).
type PartialCommit struct {
	RelationalCommitted  bool
	RelationalRolledBack bool
	GraphErr             error
	CompensationErr      error
}

func (e *PartialCommit) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("partial commit: relational committed, graph failed (%v), compensating rollback also failed (%v)", e.GraphErr, e.CompensationErr)
	}
	return fmt.Sprintf("partial commit: relational committed and rolled back, graph failed (%v)", e.GraphErr)
}

func (e *PartialCommit) Unwrap() error { return e.GraphErr }
