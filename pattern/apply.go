package pattern

import (
	"context"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/parsercontract"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/txcoord"
)

// TargetFile is one file of the target repository being analyzed for
// pattern application.
type TargetFile struct {
	FilePath string
	Content  []byte
}

// Recommendation ties a target file to a reference pattern worth applying,
// per §4.4's pattern application contract.
type Recommendation struct {
	ActiveFilePath     string
	ReferencePatternID int
	Confidence         float64
	Reason             string // "structural_similarity" or "language_match"
}

const (
	ReasonStructuralSimilarity = "structural_similarity"
	ReasonLanguageMatch        = "language_match"

	structuralConfidenceFactor = 0.85
	languageMatchConfidence    = 0.7
)

// Recommend analyzes the target repository's files, compares it against
// the reference repo via the combined projection, and proposes
// recommendations: structural matches first, falling back to plain
// language-match recommendations when the structural pass yields none (no
// compared pair lands on a reference file that holds a code pattern).
func Recommend(ctx context.Context, projections *projection.Manager, q relational.Queryer, parser parsercontract.Parser, active, reference int, targetFiles []TargetFile, topK, maxPairs int, cutoff float64) ([]Recommendation, error) {
	parsedByPath := make(map[string]*parsercontract.ParsedFile, len(targetFiles))
	for _, f := range targetFiles {
		pf, err := parser.Parse(ctx, f.FilePath, f.Content)
		if err != nil {
			continue
		}
		parsedByPath[f.FilePath] = pf
	}

	cmp, err := projections.Compare(ctx, active, reference, topK, maxPairs, cutoff)
	if err != nil {
		return nil, err
	}

	refPatterns, err := relational.ListPatternsByRepo(ctx, q, reference)
	if err != nil {
		return nil, err
	}

	byFilePath := make(map[string][]*relational.Pattern)
	byLanguage := make(map[string][]*relational.Pattern)
	for _, p := range refPatterns {
		if p.Type == relational.PatternCode && p.FilePath != "" {
			byFilePath[p.FilePath] = append(byFilePath[p.FilePath], p)
		}
		if p.Language != "" {
			byLanguage[p.Language] = append(byLanguage[p.Language], p)
		}
	}

	var recs []Recommendation
	for _, pair := range cmp.Pairs {
		for _, p := range byFilePath[pair.ReferenceID] {
			recs = append(recs, Recommendation{
				ActiveFilePath:     pair.ActiveID,
				ReferencePatternID: p.ID,
				Confidence:         structuralConfidenceFactor * pair.Score,
				Reason:             ReasonStructuralSimilarity,
			})
		}
	}

	if len(recs) == 0 {
		for path, pf := range parsedByPath {
			for _, p := range byLanguage[pf.Language] {
				recs = append(recs, Recommendation{
					ActiveFilePath:     path,
					ReferencePatternID: p.ID,
					Confidence:         languageMatchConfidence,
					Reason:             ReasonLanguageMatch,
				})
			}
		}
	}

	return recs, nil
}

// Apply records a recommendation's outcome: it links the reference pattern
// to the target repo with an APPLIED_PATTERN edge and records the
// application metric, regardless of whether the caller accepted it.
// Acceptance only affects the pattern_metrics accepted_count.
func Apply(ctx context.Context, scope *txcoord.Scope, projections *projection.Manager, active int, rec Recommendation, accepted bool) error {
	if err := graphstore.LinkRepoPattern(ctx, scope.GraphTx(), active, rec.ReferencePatternID, string(RoleTarget)); err != nil {
		return err
	}

	if err := relational.RecordPatternApplication(ctx, relTx{scope}, rec.ReferencePatternID, accepted); err != nil {
		return err
	}

	scope.TrackRepoChange(active)
	if projections != nil {
		projections.QueueUpdate(active)
	}
	return nil
}
