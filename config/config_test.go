package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.AIRetryMultiplier)
	assert.Equal(t, 300*time.Second, cfg.AIOperationTimeout)
}

func TestDefaultExtractionPolicies(t *testing.T) {
	policies := DefaultExtractionPolicies()
	require.Len(t, policies, 3)

	strict := policies[PolicyStrict]
	inclusive := policies[PolicyInclusive]
	assert.Greater(t, strict.ConfidenceThreshold, inclusive.ConfidenceThreshold)
	assert.Greater(t, strict.MinOccurrences, inclusive.MinOccurrences)
}

func TestDefaultThresholdConfig(t *testing.T) {
	th := DefaultThresholdConfig()
	assert.Equal(t, 0.5, th.ProjectionSimilarityCutoff)
	assert.Equal(t, 0.7, th.PatternApplyFallbackConfidence)
	assert.Equal(t, 0.8, th.CrossRepoPatternBaseConfidence)
	assert.Equal(t, 10, th.ProjectionTopK)
	assert.Equal(t, 20, th.ProjectionMaxPairs)
}

func TestValidator_RequireString(t *testing.T) {
	v := NewValidator()
	v.RequireString("Name", "")
	assert.False(t, v.IsValid())
	assert.Contains(t, v.Errors()[0], "Name is required")
}

func TestValidator_RequirePositiveInt(t *testing.T) {
	v := NewValidator()
	v.RequirePositiveInt("Dimension", 0)
	require.False(t, v.IsValid())

	v2 := NewValidator()
	v2.RequirePositiveInt("Dimension", 768)
	assert.True(t, v2.IsValid())
}

func TestValidator_RequireOneOf(t *testing.T) {
	v := NewValidator()
	v.RequireOneOf("Kind", "bogus", []string{"active", "reference"})
	require.False(t, v.IsValid())
	assert.Contains(t, v.Errors()[0], "must be one of")
}

func TestConfig_ValidateFailsFastOnMissingFields(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)

	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.NotEmpty(t, cerr.Fields)
}

func TestEnvConfig_Defaults(t *testing.T) {
	env := NewEnvConfig("REPOANALYZER_TEST_UNSET")
	assert.Equal(t, "fallback", env.GetString("MISSING", "fallback"))
	assert.Equal(t, 42, env.GetInt("MISSING", 42))
	assert.Equal(t, 1.5, env.GetFloat("MISSING", 1.5))
	assert.True(t, env.GetBool("MISSING", true))
	assert.Equal(t, 5*time.Second, env.GetDuration("MISSING", 5*time.Second))
}

func TestEnvConfig_Prefix(t *testing.T) {
	t.Setenv("EVE_PORT", "9090")
	env := NewEnvConfig("EVE")
	assert.Equal(t, 9090, env.GetInt("PORT", 8080))
}
