package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoanalyzer.dev/logging"
)

func newTestOrchestrator() *Orchestrator {
	log := logging.NewScoped(logging.New(logging.DefaultConfig()), nil)
	return New(log)
}

func TestOrchestrator_RunsInReverseOrder(t *testing.T) {
	o := newTestOrchestrator()
	var order []string

	o.Register("pool", func(ctx context.Context) error {
		order = append(order, "pool")
		return nil
	})
	o.Register("cache", func(ctx context.Context) error {
		order = append(order, "cache")
		return nil
	})
	o.Register("driver", func(ctx context.Context) error {
		order = append(order, "driver")
		return nil
	})

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, []string{"driver", "cache", "pool"}, order)
}

func TestOrchestrator_CollectsAllErrors(t *testing.T) {
	o := newTestOrchestrator()
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	o.Register("a", func(ctx context.Context) error { return errA })
	o.Register("b", func(ctx context.Context) error { return errB })

	err := o.Run(context.Background())
	require.Error(t, err)
	var shutdownErr *Error
	require.ErrorAs(t, err, &shutdownErr)
	assert.Len(t, shutdownErr.Errs, 2)
}

func TestOrchestrator_DoubleRunIsSafe(t *testing.T) {
	o := newTestOrchestrator()
	calls := 0
	o.Register("idempotent", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, o.Run(context.Background()))
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, 2, calls)
	assert.True(t, o.HasRun())
}

func TestOrchestrator_NoComponentsIsNoop(t *testing.T) {
	o := newTestOrchestrator()
	assert.False(t, o.HasRun())
	require.NoError(t, o.Run(context.Background()))
	assert.True(t, o.HasRun())
}
