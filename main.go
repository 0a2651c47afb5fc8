// Package main wires the repository analysis engine's primitives together
// into one running process: the dual-store coordinator, retry manager,
// graph projection lifecycle, pattern storage/learning, cache substrate,
// upsert gateway, job queue, and health/shutdown orchestration. Per spec.md
// §1 the higher-level façade that decides what to ingest and when is out of
// scope; this entry point only starts the primitives and the worker pool
// that dispatches already-queued work to them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"

	"repoanalyzer.dev/blobstore"
	"repoanalyzer.dev/cache"
	"repoanalyzer.dev/cacheanalytics"
	"repoanalyzer.dev/config"
	"repoanalyzer.dev/embedclient"
	"repoanalyzer.dev/gateway"
	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/health"
	"repoanalyzer.dev/jobqueue"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/pattern"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/retry"
	"repoanalyzer.dev/shutdown"
	"repoanalyzer.dev/txcoord"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig()).Fatalf("configuration error: %v", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Service = cfg.Service.Name
	logCfg.Version = cfg.Service.Version
	logger := logging.New(logCfg)
	log := logging.NewScoped(logger, map[string]interface{}{"service": cfg.Service.Name, "version": cfg.Service.Version})

	ctx := context.Background()
	orchestrator := shutdown.New(log)

	relStore, err := relational.Open(ctx, cfg.Postgres)
	if err != nil {
		log.WithError(err).Error("failed to open relational store")
		return
	}
	orchestrator.Register("relational", func(ctx context.Context) error {
		relStore.Close()
		return nil
	})

	if err := relational.Migrate(ctx, relStore); err != nil {
		log.WithError(err).Error("failed to migrate relational schema")
		runShutdown(ctx, orchestrator, log)
		return
	}

	graphStore, err := graphstore.Open(ctx, cfg.Neo4j)
	if err != nil {
		log.WithError(err).Error("failed to open graph store")
		runShutdown(ctx, orchestrator, log)
		return
	}
	orchestrator.Register("graphstore", func(ctx context.Context) error {
		return graphStore.Close(ctx)
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	orchestrator.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	cacheCoord := cache.NewCoordinator(log)
	for _, name := range []string{"search_results", "ai_pattern_processor", "vector_store", "request_scope"} {
		cacheCoord.Register(cache.NewSubsystem(name, redisClient, cfg.Cache.DefaultTTL))
	}

	analytics := cacheanalytics.New(cacheCoord, log, cfg.Cache.ReportInterval, cfg.Cache.WarmupInterval, cfg.Cache.AnalyticsTick)
	analyticsCtx, cancelAnalytics := context.WithCancel(ctx)
	go analytics.Run(analyticsCtx)
	orchestrator.Register("cache_analytics", func(ctx context.Context) error {
		cancelAnalytics()
		return nil
	})

	coord := txcoord.New(relStore, graphStore, cfg.Neo4j.Database, cacheCoord, log)
	retryMgr := retry.New(cfg.Retry, log)
	projections := projection.New(graphStore, cfg.Neo4j.Database, cfg.Thresholds.ProjectionDebounce, log)

	embedder := embedclient.DeterministicStub{Dim: cfg.EmbeddingDimension}
	gw := gateway.New(coord, cfg.Neo4j.Database, embedder, retryMgr, projections, log)

	if cfg.BlobStore.Enabled {
		blobStore, err := blobstore.New(ctx, cfg.BlobStore)
		if err != nil {
			log.WithError(err).Error("failed to configure blob store, continuing with inline-only storage")
		} else {
			gw.SetBlobStore(blobStore)
		}
	}

	policies := pattern.NewPolicyLookup(func(c pattern.Candidate) bool {
		return pattern.PassesPolicy(c, cfg.ExtractionPolicies, config.PolicyBalanced)
	})

	queue, err := jobqueue.New(ctx, jobqueue.Config{
		RedisURL:  fmt.Sprintf("redis://%s:%d/%d", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB),
		KeyPrefix: cfg.Service.Name + ":jobs:",
	})
	if err != nil {
		log.WithError(err).Error("failed to open job queue")
		runShutdown(ctx, orchestrator, log)
		return
	}
	orchestrator.Register("jobqueue", func(ctx context.Context) error {
		return queue.Close()
	})

	processor := newServiceProcessor(coord, gw, projections, retryMgr, policies, log)
	pool := jobqueue.NewPool(queue, processor, jobqueue.DefaultPoolConfig(), log)
	poolCtx, cancelPool := context.WithCancel(ctx)
	pool.Start(poolCtx)
	orchestrator.Register("jobqueue_pool", func(ctx context.Context) error {
		cancelPool()
		return pool.Stop(ctx)
	})

	monitor := health.New(cfg.Service.Name, cfg.Service.Version)
	monitor.Register("postgres", postgresHealthCheck(relStore))
	monitor.Register("neo4j", neo4jHealthCheck(graphStore, cfg.Neo4j.Database))
	monitor.Register("cache", cacheHealthCheck(cacheCoord))

	e := echo.New()
	e.HideBanner = true
	health.Mount(e, monitor)
	addr := fmt.Sprintf(":%d", cfg.Service.HTTPPort)
	go func() {
		log.Infof("starting %s on %s", cfg.Service.Name, addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped")
		}
	}()
	orchestrator.Register("http", func(ctx context.Context) error {
		return e.Shutdown(ctx)
	})

	shutdown.WaitForSignal()
	log.Info("shutdown signal received")
	runShutdown(ctx, orchestrator, log)
}

func runShutdown(ctx context.Context, orchestrator *shutdown.Orchestrator, log *logging.Scoped) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := orchestrator.Run(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown completed with errors")
		return
	}
	log.Info("shutdown complete")
}

func postgresHealthCheck(store *relational.Store) health.CheckFunc {
	return func(ctx context.Context) health.ComponentHealth {
		stat := store.Pool().Stat()
		if err := store.Pool().Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusUnhealthy, Detail: err.Error()}
		}
		return health.ComponentHealth{
			Status: health.StatusHealthy,
			Metrics: map[string]interface{}{
				"total_conns": stat.TotalConns(),
				"idle_conns":  stat.IdleConns(),
				"acquired":    stat.AcquiredConns(),
			},
		}
	}
}

func neo4jHealthCheck(store *graphstore.Store, database string) health.CheckFunc {
	return func(ctx context.Context) health.ComponentHealth {
		_, err := store.ExecuteRead(ctx, database, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			return tx.Run(ctx, "RETURN 1", nil)
		})
		if err != nil {
			return health.ComponentHealth{Status: health.StatusUnhealthy, Detail: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusHealthy}
	}
}

func cacheHealthCheck(coord *cache.Coordinator) health.CheckFunc {
	return func(ctx context.Context) health.ComponentHealth {
		metrics := coord.AggregateMetrics()
		out := make(map[string]interface{}, len(metrics))
		status := health.StatusHealthy
		for name, m := range metrics {
			out[name] = map[string]interface{}{"hits": m.Hits, "misses": m.Misses, "sets": m.Sets}
			if m.Hits+m.Misses > 100 && float64(m.Hits)/float64(m.Hits+m.Misses) < 0.1 {
				status = health.StatusDegraded
			}
		}
		return health.ComponentHealth{Status: status, Metrics: out}
	}
}
