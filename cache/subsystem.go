// Package cache implements the per-subsystem TTL caches backed by Redis,
// the multi-cache coordinator that fans pattern invalidation out across
// them, and the metrics that feed cacheanalytics' TTL-tuning heuristics.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Metrics tracks monotonically increasing per-cache counters.
type Metrics struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Evicts  int64
}

// Subsystem is a single named cache (e.g. "search_results",
// "ai_pattern_processor", "vector_store") backed by Redis with a default
// TTL, bounded in the sense that every entry carries its own expiry, and
// prefix-pattern invalidation.
type Subsystem struct {
	name       string
	client     *redis.Client
	defaultTTL time.Duration

	mu      sync.Mutex
	metrics Metrics
}

// NewSubsystem wraps an existing Redis client under a cache name, namespacing
// every key as "cache:{name}:{key}" the way the teacher's RedisRepository
// namespaces under "cache:".
func NewSubsystem(name string, client *redis.Client, defaultTTL time.Duration) *Subsystem {
	return &Subsystem{name: name, client: client, defaultTTL: defaultTTL}
}

// Name returns the subsystem's registered name.
func (s *Subsystem) Name() string { return s.name }

func (s *Subsystem) key(k string) string {
	return fmt.Sprintf("cache:%s:%s", s.name, k)
}

// Get unmarshals the cached value into dest. Returns (false, nil) on a
// clean miss.
func (s *Subsystem) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		s.record(func(m *Metrics) { m.Misses++ })
		return false, nil
	}
	if err != nil {
		return false, &CacheError{Op: "get", Err: err}
	}
	s.record(func(m *Metrics) { m.Hits++ })
	return true, json.Unmarshal(data, dest)
}

// Set writes value with ttl, or the subsystem default if ttl is zero.
func (s *Subsystem) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return &CacheError{Op: "set", Err: err}
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return &CacheError{Op: "set", Err: err}
	}
	s.record(func(m *Metrics) { m.Sets++ })
	return nil
}

// InvalidatePattern removes every key matching a glob scoped to this
// subsystem's namespace, e.g. "repo:42:*" becomes "cache:{name}:repo:42:*".
// Idempotent: deleting an already-absent key is not an error.
func (s *Subsystem) InvalidatePattern(ctx context.Context, pattern string) error {
	full := s.key(pattern)
	iter := s.client.Scan(ctx, 0, full, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return &CacheError{Op: "invalidate_pattern_scan", Err: err}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return &CacheError{Op: "invalidate_pattern_del", Err: err}
	}
	s.record(func(m *Metrics) { m.Evicts += int64(len(keys)) })
	return nil
}

// Snapshot returns a copy of the subsystem's current metrics.
func (s *Subsystem) Snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// HitRate returns hits/(hits+misses), or 0 if there is no traffic yet.
func (s *Subsystem) HitRate() float64 {
	m := s.Snapshot()
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

func (s *Subsystem) record(f func(*Metrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.metrics)
}

// CacheError tags a Redis-backed cache failure. Per §7, cache errors are
// always advisory: logged by callers at warning level, never propagated
// past the cache boundary into gateway/txcoord callers.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache: %s: %v", e.Op, e.Err) }
func (e *CacheError) Unwrap() error  { return e.Err }
