package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoanalyzer.dev/logging"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	log := logging.NewScoped(logrus.New(), nil)
	return NewCoordinator(log)
}

func newRedisSubsystem(t *testing.T, name string) *Subsystem {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSubsystem(name, client, time.Minute)
}

func TestCoordinator_RegisterAndGet(t *testing.T) {
	coord := newTestCoordinator(t)
	sub := newRedisSubsystem(t, "vector_store")
	coord.Register(sub)

	assert.Same(t, sub, coord.Get("vector_store"))
	assert.Nil(t, coord.Get("missing"))
}

func TestCoordinator_Register_ReplacesSameName(t *testing.T) {
	coord := newTestCoordinator(t)
	first := newRedisSubsystem(t, "search_results")
	second := newRedisSubsystem(t, "search_results")
	coord.Register(first)
	coord.Register(second)

	assert.Same(t, second, coord.Get("search_results"))
}

func TestCoordinator_InvalidatePattern_DispatchesToAll(t *testing.T) {
	coord := newTestCoordinator(t)
	a := newRedisSubsystem(t, "search_results")
	b := newRedisSubsystem(t, "vector_store")
	coord.Register(a)
	coord.Register(b)

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "repo:1:x", "v", 0))
	require.NoError(t, b.Set(ctx, "repo:1:y", "v", 0))

	require.NoError(t, coord.InvalidatePattern(ctx, "repo:1:*"))

	var dest string
	foundA, _ := a.Get(ctx, "repo:1:x", &dest)
	foundB, _ := b.Get(ctx, "repo:1:y", &dest)
	assert.False(t, foundA)
	assert.False(t, foundB)
}

func TestCoordinator_AggregateMetrics_KeyedByName(t *testing.T) {
	coord := newTestCoordinator(t)
	sub := newRedisSubsystem(t, "ai_pattern_processor")
	coord.Register(sub)

	require.NoError(t, sub.Set(context.Background(), "k", "v", 0))

	metrics := coord.AggregateMetrics()
	require.Contains(t, metrics, "ai_pattern_processor")
	assert.Equal(t, int64(1), metrics["ai_pattern_processor"].Sets)
}
