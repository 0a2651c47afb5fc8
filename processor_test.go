package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoanalyzer.dev/jobqueue"
	"repoanalyzer.dev/parsercontract"
)

func TestServiceProcessor_Timeout(t *testing.T) {
	p := &serviceProcessor{}
	assert.Equal(t, 30*time.Second, p.Timeout(jobqueue.Job{Kind: jobqueue.KindIngestRepository}))
	assert.Equal(t, 30*time.Second, p.Timeout(jobqueue.Job{Kind: jobqueue.KindApplyPatterns}))
	assert.Equal(t, 2*time.Minute, p.Timeout(jobqueue.Job{Kind: jobqueue.KindLearnCrossRepository}))
}

func TestServiceProcessor_Process_UnknownKindErrors(t *testing.T) {
	p := &serviceProcessor{}
	err := p.Process(context.Background(), jobqueue.Job{Kind: jobqueue.Kind("bogus")})
	assert.ErrorContains(t, err, "unknown job kind")
}

func TestRepeatedElementsFromFeatures(t *testing.T) {
	features := map[string]interface{}{
		"repeated_elements": map[string]interface{}{
			"getter_setter_pair": 4,
			"builder_method":     float64(2),
			"ignored_type":       "not-a-number",
		},
	}
	out := repeatedElementsFromFeatures(features)
	assert.Equal(t, map[string]int{"getter_setter_pair": 4, "builder_method": 2}, out)
}

func TestRepeatedElementsFromFeatures_MissingKeyReturnsEmpty(t *testing.T) {
	out := repeatedElementsFromFeatures(map[string]interface{}{})
	assert.Empty(t, out)
}

func TestLanguageLookupParser_ReturnsUpstreamLanguage(t *testing.T) {
	parser := languageLookupParser{byPath: map[string]string{"src/a.go": "go"}}
	assert.True(t, parser.Supports(parsercontract.SupportsFeatures))
	assert.False(t, parser.Supports(parsercontract.SupportsAST))

	parsed, err := parser.Parse(context.Background(), "src/a.go", nil)
	require.NoError(t, err)
	assert.Equal(t, "go", parsed.Language)
	assert.Equal(t, parsercontract.KindUnknown, parsed.Kind)
	assert.Equal(t, "src/a.go", parsed.FilePath)
}

func TestLanguageLookupParser_UnknownPathYieldsEmptyLanguage(t *testing.T) {
	parser := languageLookupParser{byPath: map[string]string{}}
	parsed, err := parser.Parse(context.Background(), "src/missing.rb", nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Language)
}
