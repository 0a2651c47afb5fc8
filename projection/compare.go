package projection

import (
	"context"
	"math"
	"sort"

	"repoanalyzer.dev/graphstore"
)

// SimilarityPair is one cross-repo node match surfaced by Compare.
type SimilarityPair struct {
	ActiveID    string
	ReferenceID string
	Score       float64
}

// CompareResult bundles the similarity pairs with per-repo language
// histograms, per §4.3's compare() contract.
type CompareResult struct {
	Pairs              []SimilarityPair
	ActiveLanguages    map[string]int
	ReferenceLanguages map[string]int
}

// Compare ensures the combined active-reference-{a}-{b} projection, then
// scores every active/reference Code node pair with structuralSimilarity
// (1 for the same language, 0 otherwise; embeddings are not used), keeps
// pairs at or above cutoff, at most topK per active node, and returns at
// most maxPairs pairs crossing the repo boundary.
func (m *Manager) Compare(ctx context.Context, active, reference int, topK, maxPairs int, cutoff float64) (*CompareResult, error) {
	if err := m.EnsureActiveReference(ctx, active, reference); err != nil {
		return nil, err
	}

	activeNodes, err := graphstore.LoadCodeNodes(ctx, m.store, m.db, active)
	if err != nil {
		return nil, err
	}
	referenceNodes, err := graphstore.LoadCodeNodes(ctx, m.store, m.db, reference)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		ActiveLanguages:    languageHistogram(activeNodes),
		ReferenceLanguages: languageHistogram(referenceNodes),
	}

	var pairs []SimilarityPair
	for _, a := range activeNodes {
		scored := make([]SimilarityPair, 0, len(referenceNodes))
		for _, r := range referenceNodes {
			score := structuralSimilarity(a, r)
			if score >= cutoff {
				scored = append(scored, SimilarityPair{ActiveID: a.ID, ReferenceID: r.ID, Score: score})
			}
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		if len(scored) > topK {
			scored = scored[:topK]
		}
		pairs = append(pairs, scored...)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	if len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}
	result.Pairs = pairs
	return result, nil
}

// structuralSimilarity is a coarse stand-in for a cosine-over-node2vec
// score: same language is a strong structural signal even without an
// embedding vector on hand; callers with real embeddings should prefer
// cosine similarity over the stored Code.embedding property instead.
func structuralSimilarity(a, b graphstore.NodeRecord) float64 {
	if a.Language == "" || b.Language == "" {
		return 0
	}
	if a.Language == b.Language {
		return 1
	}
	return 0
}

func languageHistogram(nodes []graphstore.NodeRecord) map[string]int {
	hist := make(map[string]int)
	for _, n := range nodes {
		if n.Language == "" {
			continue
		}
		hist[n.Language]++
	}
	return hist
}

// CosineSimilarity computes cosine similarity between two equal-length
// embedding vectors, used when real embeddings (not just language tags)
// are available for a pair of nodes.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
