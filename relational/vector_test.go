package relational

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral_RoundTrip(t *testing.T) {
	in := []float32{0.1, -0.25, 3}
	lit := vectorLiteral(in)
	s, ok := lit.(string)
	require.True(t, ok)

	out, err := parseVector(s)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.InDelta(t, 0.1, out[0], 1e-6)
	assert.InDelta(t, -0.25, out[1], 1e-6)
	assert.InDelta(t, 3, out[2], 1e-6)
}

func TestVectorLiteral_Nil(t *testing.T) {
	assert.Nil(t, vectorLiteral(nil))
}

func TestParseVector_Empty(t *testing.T) {
	out, err := parseVector("")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestPostgresError_Unwrap(t *testing.T) {
	base := assertError("boom")
	err := &PostgresError{Op: "exec", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "exec")
}

func assertError(msg string) error {
	return &testErr{msg}
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
