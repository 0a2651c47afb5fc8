//go:build integration

package pattern

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
	"repoanalyzer.dev/gateway"
	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/parsercontract"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/retry"
	"repoanalyzer.dev/txcoord"
)

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

// TestLearnRecommendApply_EndToEnd exercises the full reference-learning,
// recommendation, and application path: a reference repo's code gets
// learned into a code pattern, the active repo is compared against it via
// the combined projection, Recommend joins the comparison's structural
// match back to the stored pattern by file path, and Apply records it.
func TestLearnRecommendApply_EndToEnd(t *testing.T) {
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
	projections := projection.New(graphStore, neoCfg.Database, 50*time.Millisecond, log)
	retryMgr := retry.New(config.RetryConfig{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, JitterFactor: 0.1, AIRetryMultiplier: 2, AIOperationTimeout: 5 * time.Second}, log)

	gw := gateway.New(coord, neoCfg.Database, nil, retryMgr, projections, log)

	referenceRepoID, err := gw.UpsertRepository(ctx, "octo/reference", "https://example.com/octo/reference", relational.RepoReference, nil)
	require.NoError(t, err)
	activeRepoID, err := gw.UpsertRepository(ctx, "octo/active", "https://example.com/octo/active", relational.RepoActive, nil)
	require.NoError(t, err)

	const refPath = "pkg/widget.go"
	const activePath = "pkg/gadget.go"

	_, err = gw.UpsertCodeSnippet(ctx, gateway.UpsertCodeSnippetParams{
		RepoID: referenceRepoID, FilePath: refPath, Language: "go", AST: "(file (package_clause))",
	})
	require.NoError(t, err)
	_, err = gw.UpsertCodeSnippet(ctx, gateway.UpsertCodeSnippetParams{
		RepoID: activeRepoID, FilePath: activePath, Language: "go", AST: "(file (package_clause))",
	})
	require.NoError(t, err)

	policies := NewPolicyLookup(func(c Candidate) bool {
		return PassesPolicy(c, config.DefaultExtractionPolicies(), config.PolicyBalanced)
	})

	snap := Snapshot{
		RepoID: referenceRepoID,
		Files: []FileCandidate{
			{
				FilePath:         refPath,
				Language:         "go",
				Content:          "package widget\n\nfunc Get() int { return 1 }\nfunc Set(v int) {}\n",
				RepeatedElements: map[string]int{"getter_setter_pair": 4},
			},
		},
	}

	scope, err := coord.OpenScope(ctx, true)
	require.NoError(t, err)
	storedIDs, err := LearnFromRepository(ctx, scope, projections, nil, policies, snap)
	require.NoError(t, err)
	require.NoError(t, scope.Commit(ctx))
	require.Len(t, storedIDs, 1)

	stored, err := relational.GetPattern(ctx, relStore, storedIDs[0])
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, refPath, stored.FilePath)
	assert.NotEqual(t, refPath, stored.SampleContent)

	recs, err := Recommend(ctx, projections, relStore, parsercontract.StubParser{}, activeRepoID, referenceRepoID,
		[]TargetFile{{FilePath: activePath, Content: []byte("package gadget")}}, 10, 50, 0.6)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, activePath, recs[0].ActiveFilePath)
	assert.Equal(t, storedIDs[0], recs[0].ReferencePatternID)
	assert.Equal(t, ReasonStructuralSimilarity, recs[0].Reason)

	applyScope, err := coord.OpenScope(ctx, true)
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, applyScope, projections, activeRepoID, recs[0], true))
	require.NoError(t, applyScope.Commit(ctx))
}
