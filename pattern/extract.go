// Package pattern extracts, persists, links, compares, and re-applies
// recurring code/doc/architecture structures across repositories, per §4.4.
package pattern

import (
	"repoanalyzer.dev/config"
	"repoanalyzer.dev/relational"
)

// Candidate is a pattern proposed by extraction, before the policy
// threshold check decides whether it is worth storing.
type Candidate struct {
	Type          relational.PatternType
	Language      string
	FilePath      string
	SampleContent string
	Confidence    float64
	Embedding     []float32
	Elements      map[string]interface{}
	Success       bool
}

// PassesPolicy reports whether a candidate's confidence clears the
// extraction policy threshold for its configured strictness. Extraction is
// advisory: a candidate that fails this check is simply dropped, never an
// error.
func PassesPolicy(c Candidate, policies map[config.ExtractionPolicyName]config.ExtractionPolicy, name config.ExtractionPolicyName) bool {
	policy, ok := policies[name]
	if !ok {
		return false
	}
	return c.Confidence >= policy.ConfidenceThreshold
}

// ToPattern converts an accepted candidate into a relational.Pattern row
// for the given repo, ready for Store.
func (c Candidate) ToPattern(repoID int) relational.Pattern {
	return relational.Pattern{
		RepoID:        repoID,
		Type:          c.Type,
		Language:      c.Language,
		FilePath:      c.FilePath,
		SampleContent: c.SampleContent,
		Confidence:    c.Confidence,
		Embedding:     c.Embedding,
		Elements:      c.Elements,
		Success:       c.Success,
	}
}

// Failed builds a zero-confidence candidate for a failed embedding: per
// §4.4, extraction never fails loudly, it yields a pattern with a null
// embedding marked success=false.
func Failed(patternType relational.PatternType, language, filePath, sample string) Candidate {
	return Candidate{
		Type:          patternType,
		Language:      language,
		FilePath:      filePath,
		SampleContent: sample,
		Confidence:    0,
		Embedding:     nil,
		Success:       false,
	}
}
