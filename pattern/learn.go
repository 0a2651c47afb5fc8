package pattern

import (
	"context"

	"repoanalyzer.dev/embedclient"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/txcoord"
)

// ElementRepeatThreshold is the default minimum repeated-element-type count
// (N) that qualifies a file's graph neighborhood for a code pattern.
const ElementRepeatThreshold = 3

// DocKindShareThreshold is the default minimum number of docs (K) sharing a
// kind that qualifies for a doc pattern.
const DocKindShareThreshold = 3

// DocSampleTruncateLength bounds how much of each doc sample content is
// kept when building a doc pattern's sample.
const DocSampleTruncateLength = 500

// CodeSampleTruncateLength bounds how much of a file's content is kept as
// a code pattern's sample content.
const CodeSampleTruncateLength = 1000

// FileCandidate is one file's worth of analysis input to repository
// learning: its path, language, content (for the pattern's sample), and a
// count of repeated structural element types seen in its graph
// neighborhood.
type FileCandidate struct {
	FilePath         string
	Language         string
	Content          string
	RepeatedElements map[string]int
}

// DocCandidate is one doc's worth of analysis input to repository learning.
type DocCandidate struct {
	FilePath string
	Kind     string
	Content  string
}

// DependencyPair is one inter-component dependency edge observed for the
// architecture dependency-pairs pattern.
type DependencyPair struct {
	From string
	To   string
}

// Snapshot is the analysis state learning operates on for one repository;
// callers assemble it from the graph store / relational store before
// calling LearnFromRepository.
type Snapshot struct {
	RepoID          int
	Files           []FileCandidate
	Docs            []DocCandidate
	DirectoryShape  map[string]interface{}
	DependencyPairs []DependencyPair
}

// LearnFromRepository walks a repository's snapshot and extracts code, doc,
// and architecture pattern candidates per §4.4, storing every one that
// passes the extraction policy through Store.
func LearnFromRepository(ctx context.Context, scope *txcoord.Scope, projections *projection.Manager, embedder embedclient.Client, policies PolicyLookup, snap Snapshot) ([]int, error) {
	var storedIDs []int

	for _, f := range snap.Files {
		if countRepeated(f.RepeatedElements) < ElementRepeatThreshold {
			continue
		}
		cand := Candidate{
			Type:          relational.PatternCode,
			Language:      f.Language,
			FilePath:      f.FilePath,
			SampleContent: truncate(f.Content, CodeSampleTruncateLength),
			Confidence:    confidenceFromRepeats(f.RepeatedElements),
			Elements:      toElements(f.RepeatedElements),
			Success:       true,
		}
		if embedder != nil {
			vec, err := embedder.Embed(ctx, f.FilePath)
			if err != nil {
				cand = Failed(relational.PatternCode, f.Language, f.FilePath, truncate(f.Content, CodeSampleTruncateLength))
			} else {
				cand.Embedding = vec
			}
		}
		if !policies.passes(cand) {
			continue
		}
		id, err := Store(ctx, scope, projections, cand.ToPattern(snap.RepoID), f.FilePath, RoleSource)
		if err != nil {
			return storedIDs, err
		}
		storedIDs = append(storedIDs, id)
	}

	for kind, docs := range groupDocsByKind(snap.Docs) {
		if len(docs) < DocKindShareThreshold {
			continue
		}
		samples := docs
		if len(samples) > 3 {
			samples = samples[:3]
		}
		sample := ""
		for _, d := range samples {
			sample += truncate(d.Content, DocSampleTruncateLength)
		}
		cand := Candidate{
			Type:          relational.PatternDoc,
			FilePath:      samples[0].FilePath,
			SampleContent: sample,
			Confidence:    0.75,
			Success:       true,
		}
		if !policies.passes(cand) {
			continue
		}
		id, err := Store(ctx, scope, projections, cand.ToPattern(snap.RepoID), samples[0].FilePath, RoleSource)
		if err != nil {
			return storedIDs, err
		}
		storedIDs = append(storedIDs, id)
		_ = kind
	}

	if snap.DirectoryShape != nil {
		cand := Candidate{Type: relational.PatternArch, Confidence: 0.8, Elements: snap.DirectoryShape, Success: true}
		if policies.passes(cand) {
			id, err := Store(ctx, scope, projections, cand.ToPattern(snap.RepoID), "", RoleSource)
			if err != nil {
				return storedIDs, err
			}
			storedIDs = append(storedIDs, id)
		}
	}

	if len(snap.DependencyPairs) > 0 {
		elements := map[string]interface{}{"pairs": dependencyPairsToElements(snap.DependencyPairs)}
		cand := Candidate{Type: relational.PatternArch, Confidence: 0.8, Elements: elements, Success: true}
		if policies.passes(cand) {
			id, err := Store(ctx, scope, projections, cand.ToPattern(snap.RepoID), "", RoleSource)
			if err != nil {
				return storedIDs, err
			}
			storedIDs = append(storedIDs, id)
		}
	}

	return storedIDs, nil
}

// PolicyLookup is the narrow slice of config this package needs, avoiding a
// direct dependency on the config package's full surface.
type PolicyLookup struct {
	passes func(Candidate) bool
}

// NewPolicyLookup builds a PolicyLookup bound to a specific named policy.
func NewPolicyLookup(passes func(Candidate) bool) PolicyLookup {
	return PolicyLookup{passes: passes}
}

func countRepeated(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func confidenceFromRepeats(m map[string]int) float64 {
	n := countRepeated(m)
	conf := 0.5 + 0.05*float64(n)
	if conf > 1 {
		conf = 1
	}
	return conf
}

func toElements(m map[string]int) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func groupDocsByKind(docs []DocCandidate) map[string][]DocCandidate {
	out := make(map[string][]DocCandidate)
	for _, d := range docs {
		out[d.Kind] = append(out[d.Kind], d)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func dependencyPairsToElements(pairs []DependencyPair) []map[string]string {
	out := make([]map[string]string, len(pairs))
	for i, p := range pairs {
		out[i] = map[string]string{"from": p.From, "to": p.To}
	}
	return out
}
