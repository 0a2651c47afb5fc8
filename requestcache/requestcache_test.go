package requestcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoize_CachesWithinScope(t *testing.T) {
	ctx, release := Enter(context.Background())
	defer release()

	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v1, err := Memoize(ctx, "k", compute)
	require.NoError(t, err)
	v2, err := Memoize(ctx, "k", compute)
	require.NoError(t, err)

	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls)
}

func TestMemoize_PassthroughWithoutScope(t *testing.T) {
	calls := 0
	compute := func() (int, error) {
		calls++
		return 7, nil
	}

	_, _ = Memoize(context.Background(), "k", compute)
	_, _ = Memoize(context.Background(), "k", compute)

	assert.Equal(t, 2, calls)
}

func TestMemoize_ClearedAfterRelease(t *testing.T) {
	ctx, release := Enter(context.Background())
	calls := 0
	compute := func() (int, error) {
		calls++
		return 1, nil
	}
	_, _ = Memoize(ctx, "k", compute)
	release()
	_, _ = Memoize(ctx, "k", compute)
	assert.Equal(t, 2, calls)
}
