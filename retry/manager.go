package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"repoanalyzer.dev/config"
	"repoanalyzer.dev/logging"
)

// Metrics tracks aggregate retry behavior for the health snapshot.
type Metrics struct {
	TotalAttempts     int64
	SuccessfulRetries int64
	FailedOperations  int64
}

// Manager executes operations with bounded exponential backoff, applying a
// longer delay budget to AI/embedding calls than to store calls.
type Manager struct {
	cfg config.RetryConfig
	log *logging.Scoped

	mu      sync.Mutex
	metrics Metrics
}

// New builds a Manager from the retry section of config.
func New(cfg config.RetryConfig, log *logging.Scoped) *Manager {
	return &Manager{cfg: cfg, log: log.With(map[string]interface{}{"component": "retry"})}
}

// Snapshot returns a copy of the current metrics for health reporting.
func (m *Manager) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Do runs op, retrying up to MaxRetries times on a retryable error. Errors
// classified non-retryable by IsRetryable abort immediately.
func (m *Manager) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return m.do(ctx, op, false)
}

// DoAIOperation runs an embedding/AI-bound op with the AI retry multiplier
// applied to its base delay and a per-attempt timeout bound.
func (m *Manager) DoAIOperation(ctx context.Context, op func(ctx context.Context) error) error {
	return m.do(ctx, op, true)
}

func (m *Manager) do(ctx context.Context, op func(ctx context.Context) error, isAI bool) error {
	baseDelay := m.cfg.BaseDelay
	if isAI {
		baseDelay = time.Duration(float64(baseDelay) * m.cfg.AIRetryMultiplier)
	}

	var lastErr error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		m.mu.Lock()
		m.metrics.TotalAttempts++
		m.mu.Unlock()

		attemptCtx := ctx
		var cancel context.CancelFunc
		if isAI {
			attemptCtx, cancel = context.WithTimeout(ctx, m.cfg.AIOperationTimeout)
		}
		err := op(attemptCtx)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			if attempt > 0 {
				m.mu.Lock()
				m.metrics.SuccessfulRetries++
				m.mu.Unlock()
				m.log.Infof("operation succeeded after %d retries", attempt)
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			m.log.WithError(err).Warn("non-retryable error, aborting")
			m.mu.Lock()
			m.metrics.FailedOperations++
			m.mu.Unlock()
			return err
		}

		if attempt == m.cfg.MaxRetries {
			break
		}

		delay := backoff(attempt, baseDelay, m.cfg.MaxDelay, m.cfg.JitterFactor)
		m.log.WithError(err).Warnf("retryable error on attempt %d, sleeping %s", attempt+1, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.metrics.FailedOperations++
	m.mu.Unlock()
	return fmt.Errorf("operation failed after %d attempts: %w", m.cfg.MaxRetries+1, lastErr)
}

// backoff computes exponential delay with +/- jitterFactor randomization,
// capped at maxDelay.
func backoff(attempt int, base, maxDelay time.Duration, jitterFactor float64) time.Duration {
	exp := float64(base) * math.Pow(2, float64(attempt))
	if exp > float64(maxDelay) {
		exp = float64(maxDelay)
	}
	jitter := exp * jitterFactor * (rand.Float64()*2 - 1)
	d := time.Duration(exp + jitter)
	if d < 0 {
		d = 0
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}
