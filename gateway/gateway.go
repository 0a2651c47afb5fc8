// Package gateway is the only supported path by which code, docs, and
// patterns enter either store, per §4.6. Every write opens its own
// txcoord.Scope spanning both backends and runs through the retry manager.
package gateway

import (
	"context"

	"repoanalyzer.dev/blobstore"
	"repoanalyzer.dev/embedclient"
	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/pattern"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/retry"
	"repoanalyzer.dev/txcoord"
)

// Gateway wires the two stores, the projection registry, the embedder, and
// the retry manager behind the upsert operations §4.6 names.
type Gateway struct {
	coord       *txcoord.Coordinator
	graphDB     string
	embedder    embedclient.Client
	retryMgr    *retry.Manager
	projections *projection.Manager
	log         *logging.Scoped
	blob        *blobstore.Store
}

// SetBlobStore wires the optional overflow store for AST/doc content that
// exceeds its inline-storage threshold. Nil (the default) disables overflow:
// every AST/doc column is stored inline regardless of size.
func (g *Gateway) SetBlobStore(store *blobstore.Store) {
	g.blob = store
}

// overflowIfNeeded moves content to blob storage when it exceeds the
// configured threshold, returning the blob reference in its place. Falls
// back to storing content inline on any blobstore error, same as the
// embedder's fail-open behavior in UpsertDoc.
func (g *Gateway) overflowIfNeeded(ctx context.Context, repoID int, filePath, kind, content string) string {
	if g.blob == nil || !g.blob.ShouldOverflow(len(content)) {
		return content
	}
	ref, err := g.blob.Put(ctx, blobstore.Key(repoID, filePath, kind), []byte(content))
	if err != nil {
		g.log.WithError(err).Warn("blob overflow failed, storing inline")
		return content
	}
	return ref
}

// New builds a Gateway. embedder may be nil; doc embedding is then skipped.
func New(coord *txcoord.Coordinator, graphDatabase string, embedder embedclient.Client, retryMgr *retry.Manager, projections *projection.Manager, log *logging.Scoped) *Gateway {
	return &Gateway{
		coord:       coord,
		graphDB:     graphDatabase,
		embedder:    embedder,
		retryMgr:    retryMgr,
		projections: projections,
		log:         log.With(map[string]interface{}{"component": "gateway"}),
	}
}

// withScope opens a scope, runs fn, and commits or rolls back based on fn's
// result, all inside one retry-manager attempt.
func (g *Gateway) withScope(ctx context.Context, invalidateCache bool, fn func(ctx context.Context, scope *txcoord.Scope) error) error {
	return g.retryMgr.Do(ctx, func(ctx context.Context) error {
		scope, err := g.coord.OpenScope(ctx, invalidateCache)
		if err != nil {
			return err
		}
		if err := fn(ctx, scope); err != nil {
			scope.Rollback(ctx)
			return err
		}
		return scope.Commit(ctx)
	})
}

// UpsertRepository inserts-or-updates a repository by name, returning its
// canonical id, and records a repo-change for cache invalidation.
func (g *Gateway) UpsertRepository(ctx context.Context, name, sourceURL string, kind relational.RepoKind, activeRepoID *int) (int, error) {
	var id int
	err := g.withScope(ctx, true, func(ctx context.Context, scope *txcoord.Scope) error {
		var err error
		id, err = relational.UpsertRepository(ctx, relTx{scope}, name, sourceURL, kind, activeRepoID)
		if err != nil {
			return err
		}
		if err := graphstore.UpsertRepositoryNode(ctx, scope.GraphTx(), id, name); err != nil {
			return err
		}
		scope.TrackRepoChange(id)
		return nil
	})
	return id, err
}

// UpsertCodeSnippetParams is the input to UpsertCodeSnippet.
type UpsertCodeSnippetParams struct {
	RepoID           int
	FilePath         string
	Language         string
	AST              string
	Embedding        []float32
	EnrichedFeatures map[string]interface{}
}

// UpsertCodeSnippet writes the relational row and, when an AST is present,
// the graph Code node, then schedules a projection re-ensure for the repo.
func (g *Gateway) UpsertCodeSnippet(ctx context.Context, p UpsertCodeSnippetParams) (int, error) {
	ast := g.overflowIfNeeded(ctx, p.RepoID, p.FilePath, "ast", p.AST)

	var id int
	err := g.withScope(ctx, true, func(ctx context.Context, scope *txcoord.Scope) error {
		var err error
		id, err = relational.UpsertCodeSnippet(ctx, relTx{scope}, relational.CodeSnippet{
			RepoID:           p.RepoID,
			FilePath:         p.FilePath,
			AST:              ast,
			Embedding:        p.Embedding,
			EnrichedFeatures: p.EnrichedFeatures,
		})
		if err != nil {
			return err
		}
		if p.AST != "" {
			if err := graphstore.UpsertCodeNode(ctx, scope.GraphTx(), graphstore.CodeNode{
				RepoID:    p.RepoID,
				FilePath:  p.FilePath,
				Language:  p.Language,
				Embedding: p.Embedding,
			}); err != nil {
				return err
			}
		}
		scope.TrackRepoChange(p.RepoID)
		return nil
	})
	if err == nil && g.projections != nil {
		g.projections.InvalidateRepo(ctx, p.RepoID)
		g.projections.QueueUpdate(p.RepoID)
	}
	return id, err
}

// UpsertDocParams is the input to UpsertDoc.
type UpsertDocParams struct {
	RepoID    int
	FilePath  string
	Content   string
	Kind      relational.DocKind
	Metadata  map[string]interface{}
	IsPrimary bool
}

// autoEmbedKinds are the doc kinds that get an embedding generated
// automatically when the gateway has an embedder configured.
var autoEmbedKinds = map[relational.DocKind]bool{
	relational.DocMarkdown:  true,
	relational.DocDocstring: true,
}

// UpsertDoc writes a document row (auto-embedding markdown/docstring kinds
// via the configured embedder), the owning relation row, and the graph
// Documentation node, returning the document id.
func (g *Gateway) UpsertDoc(ctx context.Context, p UpsertDocParams) (int, error) {
	var embedding []float32
	if g.embedder != nil && autoEmbedKinds[p.Kind] {
		var err error
		embedErr := g.retryMgr.DoAIOperation(ctx, func(ctx context.Context) error {
			embedding, err = g.embedder.Embed(ctx, p.Content)
			return err
		})
		if embedErr != nil {
			g.log.WithError(embedErr).Warn("doc embedding failed, storing without embedding")
			embedding = nil
		}
	}

	content := g.overflowIfNeeded(ctx, p.RepoID, p.FilePath, "doc", p.Content)

	var docID int
	err := g.withScope(ctx, true, func(ctx context.Context, scope *txcoord.Scope) error {
		var err error
		docID, err = relational.InsertDoc(ctx, relTx{scope}, relational.Doc{
			FilePath:  p.FilePath,
			Content:   content,
			Kind:      p.Kind,
			Embedding: embedding,
			Metadata:  p.Metadata,
		})
		if err != nil {
			return err
		}
		if err := relational.UpsertDocRelation(ctx, relTx{scope}, p.RepoID, docID, p.IsPrimary); err != nil {
			return err
		}
		if err := graphstore.UpsertDocumentationNode(ctx, scope.GraphTx(), graphstore.DocumentationNode{
			RepoID:    p.RepoID,
			DocID:     docID,
			Path:      p.FilePath,
			Type:      string(p.Kind),
			Version:   1,
			Embedding: embedding,
		}); err != nil {
			return err
		}
		scope.TrackRepoChange(p.RepoID)
		return nil
	})
	return docID, err
}

// StoreParsedContent is a convenience composition over UpsertCodeSnippet
// that also schedules a projection ensure for the repo.
func (g *Gateway) StoreParsedContent(ctx context.Context, repoID int, filePath, language, ast string, features map[string]interface{}) error {
	_, err := g.UpsertCodeSnippet(ctx, UpsertCodeSnippetParams{
		RepoID:           repoID,
		FilePath:         filePath,
		Language:         language,
		AST:              ast,
		EnrichedFeatures: features,
	})
	if err != nil {
		return err
	}
	if g.projections != nil {
		g.projections.InvalidateRepo(ctx, repoID)
		return g.projections.EnsureCodeRepo(ctx, repoID)
	}
	return nil
}

// ShareDocsWithRepo bulk-inserts non-primary relations, idempotent under
// (repo_id, doc_id).
func (g *Gateway) ShareDocsWithRepo(ctx context.Context, docIDs []int, targetRepoID int) error {
	return g.withScope(ctx, true, func(ctx context.Context, scope *txcoord.Scope) error {
		if err := relational.ShareDocsWithRepo(ctx, relTx{scope}, docIDs, targetRepoID); err != nil {
			return err
		}
		scope.TrackRepoChange(targetRepoID)
		return nil
	})
}

// UpsertPattern stores a pattern candidate for repoID through the full
// §4.4 storage contract.
func (g *Gateway) UpsertPattern(ctx context.Context, cand pattern.Candidate, repoID int, sourceFilePath string, role pattern.Role) (int, error) {
	var id int
	err := g.withScope(ctx, true, func(ctx context.Context, scope *txcoord.Scope) error {
		var err error
		id, err = pattern.Store(ctx, scope, g.projections, cand.ToPattern(repoID), sourceFilePath, role)
		return err
	})
	return id, err
}
