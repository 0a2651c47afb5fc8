package cache

import (
	"context"
	"sync"

	"repoanalyzer.dev/logging"
)

// Coordinator registers named Subsystem caches, dispatches pattern
// invalidation across all of them, and aggregates their metrics for
// cacheanalytics and health reporting. It is the Invalidator txcoord
// depends on.
type Coordinator struct {
	log *logging.Scoped

	mu    sync.RWMutex
	named map[string]*Subsystem
}

// NewCoordinator builds an empty coordinator.
func NewCoordinator(log *logging.Scoped) *Coordinator {
	return &Coordinator{
		log:   log.With(map[string]interface{}{"component": "cache"}),
		named: make(map[string]*Subsystem),
	}
}

// Register adds a subsystem cache under its own name. Re-registering the
// same name replaces the previous instance.
func (c *Coordinator) Register(s *Subsystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.named[s.Name()] = s
}

// Get returns a registered subsystem, or nil if none is registered under
// that name.
func (c *Coordinator) Get(name string) *Subsystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.named[name]
}

// InvalidatePattern dispatches invalidation across every registered cache.
// Idempotent; per-cache failures are logged and do not abort the remaining
// caches (cache errors are advisory per §7).
func (c *Coordinator) InvalidatePattern(ctx context.Context, pattern string) error {
	c.mu.RLock()
	caches := make([]*Subsystem, 0, len(c.named))
	for _, s := range c.named {
		caches = append(caches, s)
	}
	c.mu.RUnlock()

	for _, s := range caches {
		if err := s.InvalidatePattern(ctx, pattern); err != nil {
			c.log.WithError(err).Warnf("invalidate_pattern failed for cache %q", s.Name())
		}
	}
	return nil
}

// AggregateMetrics returns a snapshot of every registered cache's metrics,
// keyed by name, for health reporting and TTL-tuning analysis.
func (c *Coordinator) AggregateMetrics() map[string]Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Metrics, len(c.named))
	for name, s := range c.named {
		out[name] = s.Snapshot()
	}
	return out
}
