package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoanalyzer.dev/config"
	"repoanalyzer.dev/logging"
)

func testLogger() *logging.Scoped {
	return logging.NewScoped(logrus.New(), map[string]interface{}{"test": true})
}

func TestIsRetryable_TypedOverridesText(t *testing.T) {
	err := &Retryable{Err: errors.New("constraint violation")}
	assert.True(t, IsRetryable(err))

	nonErr := &NonRetryable{Err: errors.New("connection refused")}
	assert.False(t, IsRetryable(nonErr))
}

func TestIsRetryable_NonRetryablePatternWins(t *testing.T) {
	err := errors.New("connection refused: value error")
	assert.False(t, IsRetryable(err))
}

func TestIsRetryable_RetryablePattern(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
}

func TestIsRetryable_UnknownDefaultsFalse(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("something odd happened")))
}

func TestManager_Do_RetriesThenSucceeds(t *testing.T) {
	cfg := config.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, JitterFactor: 0}
	m := New(cfg, testLogger())

	attempts := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestManager_Do_AbortsOnNonRetryable(t *testing.T) {
	cfg := config.RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterFactor: 0}
	m := New(cfg, testLogger())

	attempts := 0
	err := m.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("constraint violation")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestManager_Do_ExhaustsRetries(t *testing.T) {
	cfg := config.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterFactor: 0}
	m := New(cfg, testLogger())

	err := m.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("timeout")
	})
	require.Error(t, err)
	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.FailedOperations)
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	d := backoff(10, time.Second, 5*time.Second, 0)
	assert.Equal(t, 5*time.Second, d)
}
