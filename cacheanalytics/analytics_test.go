package cacheanalytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"repoanalyzer.dev/cache"
	"repoanalyzer.dev/logging"
)

func newTestCoordinator(t *testing.T) (*cache.Coordinator, *cache.Subsystem) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sub := cache.NewSubsystem("search_results", client, time.Minute)

	log := logging.NewScoped(logrus.New(), nil)
	coord := cache.NewCoordinator(log)
	coord.Register(sub)
	return coord, sub
}

func TestAnalytics_GenerateReport_RecommendsRaiseTTL(t *testing.T) {
	coord, sub := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, sub.Set(ctx, "k", "v", 0))
	for i := 0; i < 10; i++ {
		var dest string
		_, _ = sub.Get(ctx, "k", &dest)
	}

	log := logging.NewScoped(logrus.New(), nil)
	a := New(coord, log, time.Hour, 24*time.Hour, time.Second)
	a.generateReport(time.Unix(0, 0))

	report := a.LastReport()
	require.NotNil(t, report)
	require.Len(t, report.Recommendations, 1)
	require.Equal(t, "raise_ttl", report.Recommendations[0].Action)
}

func TestAnalytics_RunWarmup_PopulatesCache(t *testing.T) {
	coord, sub := newTestCoordinator(t)
	ctx := context.Background()

	log := logging.NewScoped(logrus.New(), nil)
	a := New(coord, log, time.Hour, 24*time.Hour, time.Second)
	a.RegisterWarmup("search_results", func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"warm": "value"}, nil
	})

	a.runWarmup(ctx)

	var dest string
	ok, err := sub.Get(ctx, "warm", &dest)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", dest)
}
