// Package cacheanalytics runs the background tick that generates cache
// performance reports, warms caches on a schedule, and surfaces TTL-tuning
// recommendations, per §4.5.
package cacheanalytics

import (
	"context"
	"sync"
	"time"

	"repoanalyzer.dev/cache"
	"repoanalyzer.dev/logging"
)

// WarmupFunc returns a batch of key/value pairs to preload into a named
// cache during a warmup cycle.
type WarmupFunc func(ctx context.Context) (map[string]interface{}, error)

// Recommendation is a TTL-tuning suggestion for one registered cache.
type Recommendation struct {
	CacheName string
	HitRate   float64
	Action    string // "raise_ttl", "lower_ttl", or "keep"
}

// Report is the output of one analytics generation cycle.
type Report struct {
	GeneratedAt     time.Time
	Metrics         map[string]cache.Metrics
	Recommendations []Recommendation
}

// Analytics owns the background tick. It never blocks the request path:
// warmup and report generation run on their own schedule inside Run.
type Analytics struct {
	coord          *cache.Coordinator
	log            *logging.Scoped
	reportInterval time.Duration
	warmupInterval time.Duration
	tick           time.Duration

	mu         sync.Mutex
	warmupFns  map[string]WarmupFunc
	lastReport *Report
}

// New builds an Analytics loop over coord, waking every tick (default 60s)
// to check whether a report or warmup cycle is due.
func New(coord *cache.Coordinator, log *logging.Scoped, reportInterval, warmupInterval, tick time.Duration) *Analytics {
	return &Analytics{
		coord:          coord,
		log:            log.With(map[string]interface{}{"component": "cacheanalytics"}),
		reportInterval: reportInterval,
		warmupInterval: warmupInterval,
		tick:           tick,
		warmupFns:      make(map[string]WarmupFunc),
	}
}

// RegisterWarmup attaches a warmup function for a named cache.
func (a *Analytics) RegisterWarmup(cacheName string, fn WarmupFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warmupFns[cacheName] = fn
}

// LastReport returns the most recently generated report, or nil if none
// has run yet.
func (a *Analytics) LastReport() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}

// Run blocks, waking every tick, until ctx is cancelled. Intended to be
// launched as a background goroutine tracked by the shutdown orchestrator.
func (a *Analytics) Run(ctx context.Context) {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	var lastReportAt, lastWarmupAt time.Time

	for {
		select {
		case <-ctx.Done():
			a.log.Info("analytics loop stopping")
			return
		case now := <-ticker.C:
			if now.Sub(lastReportAt) >= a.reportInterval {
				a.generateReport(now)
				lastReportAt = now
			}
			if now.Sub(lastWarmupAt) >= a.warmupInterval {
				a.runWarmup(ctx)
				lastWarmupAt = now
			}
		}
	}
}

func (a *Analytics) generateReport(now time.Time) {
	metrics := a.coord.AggregateMetrics()
	recs := make([]Recommendation, 0, len(metrics))
	for name := range metrics {
		s := a.coord.Get(name)
		if s == nil {
			continue
		}
		rate := s.HitRate()
		action := "keep"
		switch {
		case rate > 0.9:
			action = "raise_ttl"
		case rate < 0.5:
			action = "lower_ttl"
		}
		recs = append(recs, Recommendation{CacheName: name, HitRate: rate, Action: action})
	}

	report := &Report{GeneratedAt: now, Metrics: metrics, Recommendations: recs}
	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	a.log.Infof("cache analytics report generated: %d caches, %d tuning recommendations", len(metrics), len(recs))
}

func (a *Analytics) runWarmup(ctx context.Context) {
	a.mu.Lock()
	fns := make(map[string]WarmupFunc, len(a.warmupFns))
	for k, v := range a.warmupFns {
		fns[k] = v
	}
	a.mu.Unlock()

	for name, fn := range fns {
		s := a.coord.Get(name)
		if s == nil {
			continue
		}
		batch, err := fn(ctx)
		if err != nil {
			a.log.WithError(err).Warnf("warmup failed for cache %q", name)
			continue
		}
		for key, value := range batch {
			if err := s.Set(ctx, key, value, 0); err != nil {
				a.log.WithError(err).Warnf("warmup set failed for cache %q key %q", name, key)
			}
		}
	}
}
