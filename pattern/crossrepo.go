package pattern

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/txcoord"
)

// CrossRepoGroupThreshold is the minimum number of same-(type,language)
// patterns across the repo set that qualifies for a CrossRepositoryPattern.
const CrossRepoGroupThreshold = 2

// LearnAcrossRepositories implements §4.4's cross-repository learning: for
// every ordered pair in repoIDs it ensures the combined projection, then
// groups every pattern already stored for those repos by (pattern_type,
// language) and emits one CrossRepositoryPattern per group that spans at
// least CrossRepoGroupThreshold source patterns. Repository learning
// (LearnFromRepository) is expected to have already run for each repo.
func LearnAcrossRepositories(ctx context.Context, scope *txcoord.Scope, projections *projection.Manager, repoIDs []int) ([]int, error) {
	if len(repoIDs) < 2 {
		return nil, nil
	}

	for i := 0; i < len(repoIDs); i++ {
		for j := i + 1; j < len(repoIDs); j++ {
			if err := projections.EnsureActiveReference(ctx, repoIDs[i], repoIDs[j]); err != nil {
				return nil, err
			}
		}
	}

	type groupKey struct {
		patternType string
		language    string
	}
	groups := make(map[groupKey][]*relational.Pattern)

	q := relTx{scope}
	for _, repoID := range repoIDs {
		patterns, err := relational.ListPatternsByRepo(ctx, q, repoID)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			k := groupKey{patternType: string(p.Type), language: p.Language}
			groups[k] = append(groups[k], p)
		}
	}

	metaID := hashRepoIDs(repoIDs)

	var metaIDs []int
	for k, patterns := range groups {
		if len(patterns) < CrossRepoGroupThreshold {
			continue
		}
		confidence := 0.8 + 0.05*float64(len(patterns))
		if confidence > 1 {
			confidence = 1
		}
		sourceIDs := make([]int, len(patterns))
		for i, p := range patterns {
			sourceIDs[i] = p.ID
		}
		metaPatternID := derivePatternID(metaID, k.patternType, k.language)

		if err := graphstore.UpsertCrossRepositoryPattern(ctx, scope.GraphTx(), metaID, metaPatternID, k.patternType, k.language, confidence, sourceIDs); err != nil {
			return nil, err
		}
		metaIDs = append(metaIDs, metaPatternID)
	}

	return metaIDs, nil
}

// hashRepoIDs derives the MetaRepository node's integer id from the sorted
// repo-id tuple, so the same set of repos (in any order) always maps to the
// same meta node, matching the reference implementation's
// hash(tuple(sorted(repo_ids))) & 0x7FFFFFFF.
func hashRepoIDs(repoIDs []int) int {
	sorted := append([]int(nil), repoIDs...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	h := fnv32(strings.Join(parts, "-"))
	return int(h & 0x7fffffff)
}

// derivePatternID gives a CrossRepositoryPattern node a stable synthetic id
// outside the code_patterns serial sequence, since the pattern has no
// single owning repo row to carry an id from.
func derivePatternID(metaID int, patternType, language string) int {
	h := fnv32(fmt.Sprintf("%d|%s|%s", metaID, patternType, language))
	return int(h & 0x7fffffff)
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
