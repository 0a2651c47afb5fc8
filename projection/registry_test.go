package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeRepoName(t *testing.T) {
	assert.Equal(t, "code-repo-42", CodeRepoName(42))
}

func TestPatternRepoName(t *testing.T) {
	assert.Equal(t, "pattern-repo-7", PatternRepoName(7))
}

func TestActiveReferenceName_OrderIndependent(t *testing.T) {
	assert.Equal(t, ActiveReferenceName(3, 9), ActiveReferenceName(9, 3))
	assert.Equal(t, "active-reference-3-9", ActiveReferenceName(3, 9))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "present_valid", PresentValid.String())
	assert.Equal(t, "present_invalid", PresentInvalid.String())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
}
