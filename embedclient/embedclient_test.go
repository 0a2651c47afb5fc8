package embedclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicStub_SameInputSameOutput(t *testing.T) {
	c := DeterministicStub{Dim: 16}
	a, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestDeterministicStub_DifferentInputDiffers(t *testing.T) {
	c := DeterministicStub{Dim: 16}
	a, _ := c.Embed(context.Background(), "hello")
	b, _ := c.Embed(context.Background(), "world")
	assert.NotEqual(t, a, b)
}

func TestDeterministicStub_DefaultDimension(t *testing.T) {
	c := DeterministicStub{}
	assert.Equal(t, 768, c.Dimension())
}
