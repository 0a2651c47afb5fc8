package parsercontract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubParser_Supports(t *testing.T) {
	p := StubParser{}
	assert.True(t, p.Supports(SupportsAST))
	assert.True(t, p.Supports(SupportsFeatures))
	assert.False(t, p.Supports(SupportsPatterns))
}

func TestStubParser_Parse_RecognizedExtension(t *testing.T) {
	p := StubParser{}
	parsed, err := p.Parse(context.Background(), "pkg/main.go", []byte("line one\nline two\n"))
	require.NoError(t, err)
	assert.Equal(t, "go", parsed.Language)
	assert.Equal(t, KindCustom, parsed.Kind)
	assert.Equal(t, 3, parsed.Features["line_count"])
}

func TestStubParser_Parse_UnknownExtensionYieldsKindUnknown(t *testing.T) {
	p := StubParser{}
	parsed, err := p.Parse(context.Background(), "data.bin", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, parsed.Language)
	assert.Equal(t, KindUnknown, parsed.Kind)
}

func TestStubParser_Parse_NeverErrors(t *testing.T) {
	p := StubParser{}
	_, err := p.Parse(context.Background(), "", nil)
	assert.NoError(t, err)
}
