// Package requestcache provides a per-task memoization scope: a map
// installed as context-local state for the lifetime of one request,
// guaranteed cleared even on panic or early return.
package requestcache

import (
	"context"
	"sync"
)

type scopeKey struct{}

type scope struct {
	mu    sync.Mutex
	cache map[string]interface{}
}

// Enter installs a fresh request-scoped cache into ctx. Callers must defer
// the returned release func to guarantee the scope is torn down even if the
// request handler panics.
func Enter(ctx context.Context) (context.Context, func()) {
	s := &scope{cache: make(map[string]interface{})}
	child := context.WithValue(ctx, scopeKey{}, s)
	return child, func() {
		s.mu.Lock()
		s.cache = nil
		s.mu.Unlock()
	}
}

func fromContext(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// Memoize returns the cached value for key if present; otherwise it calls
// compute, stores the result, and returns it. Absent a request scope (ctx
// was never passed through Enter), calls are passthrough — compute runs
// every time with no caching, never an error.
func Memoize[T any](ctx context.Context, key string, compute func() (T, error)) (T, error) {
	s := fromContext(ctx)
	if s == nil {
		return compute()
	}

	s.mu.Lock()
	if s.cache == nil {
		s.mu.Unlock()
		return compute()
	}
	if v, ok := s.cache[key]; ok {
		s.mu.Unlock()
		typed, _ := v.(T)
		return typed, nil
	}
	s.mu.Unlock()

	value, err := compute()
	if err != nil {
		return value, err
	}

	s.mu.Lock()
	if s.cache != nil {
		s.cache[key] = value
	}
	s.mu.Unlock()
	return value, nil
}
