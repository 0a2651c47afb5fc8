//go:build integration

package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"repoanalyzer.dev/cache"
	"repoanalyzer.dev/config"
	"repoanalyzer.dev/embedclient"
	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/retry"
	"repoanalyzer.dev/txcoord"
)

// setupPostgresContainer starts a pgvector-enabled PostgreSQL container.
func setupPostgresContainer(t *testing.T) config.PostgresConfig {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "repoanalyzer",
			"POSTGRES_PASSWORD": "repoanalyzer",
			"POSTGRES_DB":       "repoanalyzer",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "repoanalyzer",
		User:     "repoanalyzer",
		Password: "repoanalyzer",
	}
}

// setupNeo4jContainer starts a Neo4j container.
func setupNeo4jContainer(t *testing.T) config.Neo4jConfig {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5-community",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/repoanalyzer",
		},
		WaitingFor: wait.ForLog("Bolt enabled").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start neo4j container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	return config.Neo4jConfig{
		URI:      fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		User:     "neo4j",
		Password: "repoanalyzer",
		Database: "neo4j",
	}
}

// TestGateway_UpsertRepositoryCodeSnippetDoc_EndToEnd exercises the gateway
// against real Postgres and Neo4j backends: a repository, a code snippet
// with an AST (so the graph Code node is also written), and a markdown doc
// (so the embedder runs and the relation/graph rows are written).
func TestGateway_UpsertRepositoryCodeSnippetDoc_EndToEnd(t *testing.T) {
	pgCfg := setupPostgresContainer(t)
	neoCfg := setupNeo4jContainer(t)
	ctx := context.Background()

	relStore, err := relational.Open(ctx, pgCfg)
	require.NoError(t, err)
	t.Cleanup(relStore.Close)
	require.NoError(t, relational.Migrate(ctx, relStore))

	graphStore, err := graphstore.Open(ctx, neoCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = graphStore.Close(ctx) })

	log := logging.NewScoped(logging.New(logging.DefaultConfig()), nil)
	cacheCoord := cache.NewCoordinator(log)
	coord := txcoord.New(relStore, graphStore, neoCfg.Database, cacheCoord, log)
	projections := projection.New(graphStore, neoCfg.Database, 100*time.Millisecond, log)
	retryMgr := retry.New(config.RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, JitterFactor: 0.1, AIRetryMultiplier: 2, AIOperationTimeout: 5 * time.Second}, log)
	embedder := embedclient.DeterministicStub{Dim: 32}

	gw := New(coord, neoCfg.Database, embedder, retryMgr, projections, log)

	repoID, err := gw.UpsertRepository(ctx, "octo/widgets", "https://example.com/octo/widgets", relational.RepoActive, nil)
	require.NoError(t, err)
	assert.Greater(t, repoID, 0)

	snippetID, err := gw.UpsertCodeSnippet(ctx, UpsertCodeSnippetParams{
		RepoID:   repoID,
		FilePath: "main.go",
		Language: "go",
		AST:      "(file (package_clause))",
	})
	require.NoError(t, err)
	assert.Greater(t, snippetID, 0)

	docID, err := gw.UpsertDoc(ctx, UpsertDocParams{
		RepoID:    repoID,
		FilePath:  "README.md",
		Content:   "# widgets\n\nA widget factory.",
		Kind:      relational.DocMarkdown,
		IsPrimary: true,
	})
	require.NoError(t, err)
	assert.Greater(t, docID, 0)

	doc, err := relational.GetDoc(ctx, relStore, docID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Len(t, doc.Embedding, 32)

	snippet, err := relational.GetCodeSnippet(ctx, relStore, repoID, "main.go")
	require.NoError(t, err)
	require.NotNil(t, snippet)
	assert.Equal(t, "(file (package_clause))", snippet.AST)
}
