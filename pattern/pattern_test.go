package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"repoanalyzer.dev/config"
	"repoanalyzer.dev/relational"
)

func TestPassesPolicy_ThresholdGating(t *testing.T) {
	policies := map[config.ExtractionPolicyName]config.ExtractionPolicy{
		"strict": {ConfidenceThreshold: 0.9},
	}

	below := Candidate{Confidence: 0.5}
	above := Candidate{Confidence: 0.95}

	assert.False(t, PassesPolicy(below, policies, "strict"))
	assert.True(t, PassesPolicy(above, policies, "strict"))
	assert.False(t, PassesPolicy(above, policies, "missing"))
}

func TestCandidate_ToPattern(t *testing.T) {
	c := Candidate{
		Type:          relational.PatternCode,
		Language:      "go",
		SampleContent: "main.go",
		Confidence:    0.8,
		Success:       true,
	}
	p := c.ToPattern(7)
	assert.Equal(t, 7, p.RepoID)
	assert.Equal(t, relational.PatternCode, p.Type)
	assert.Equal(t, "go", p.Language)
}

func TestFailed_ZeroConfidenceNotSuccess(t *testing.T) {
	c := Failed(relational.PatternCode, "go", "main.go", "package main")
	assert.Equal(t, 0.0, c.Confidence)
	assert.False(t, c.Success)
	assert.Nil(t, c.Embedding)
	assert.Equal(t, "main.go", c.FilePath)
}

func TestConfidenceFromRepeats_CapsAtOne(t *testing.T) {
	assert.InDelta(t, 0.65, confidenceFromRepeats(map[string]int{"a": 3}), 0.001)
	assert.Equal(t, 1.0, confidenceFromRepeats(map[string]int{"a": 100}))
}

func TestCountRepeated(t *testing.T) {
	assert.Equal(t, 7, countRepeated(map[string]int{"a": 3, "b": 4}))
}

func TestGroupDocsByKind(t *testing.T) {
	docs := []DocCandidate{
		{FilePath: "a.md", Kind: "readme"},
		{FilePath: "b.md", Kind: "readme"},
		{FilePath: "c.md", Kind: "guide"},
	}
	grouped := groupDocsByKind(docs)
	assert.Len(t, grouped["readme"], 2)
	assert.Len(t, grouped["guide"], 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he", truncate("hello", 2))
}

func TestDependencyPairsToElements(t *testing.T) {
	pairs := []DependencyPair{{From: "a", To: "b"}}
	out := dependencyPairsToElements(pairs)
	assert.Equal(t, []map[string]string{{"from": "a", "to": "b"}}, out)
}

func TestHashRepoIDs_OrderIndependent(t *testing.T) {
	assert.Equal(t, hashRepoIDs([]int{3, 1, 2}), hashRepoIDs([]int{1, 2, 3}))
	assert.NotEqual(t, hashRepoIDs([]int{1, 2}), hashRepoIDs([]int{1, 2, 3}))
}

func TestDerivePatternID_Deterministic(t *testing.T) {
	key := hashRepoIDs([]int{1, 2})
	a := derivePatternID(key, "code-pattern", "go")
	b := derivePatternID(key, "code-pattern", "go")
	c := derivePatternID(key, "doc-pattern", "go")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.GreaterOrEqual(t, a, 0)
}

func TestNewPolicyLookup(t *testing.T) {
	lookup := NewPolicyLookup(func(c Candidate) bool { return c.Confidence > 0.5 })
	assert.True(t, lookup.passes(Candidate{Confidence: 0.6}))
	assert.False(t, lookup.passes(Candidate{Confidence: 0.4}))
}
