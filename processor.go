package main

import (
	"context"
	"fmt"
	"time"

	"repoanalyzer.dev/config"
	"repoanalyzer.dev/embedclient"
	"repoanalyzer.dev/gateway"
	"repoanalyzer.dev/jobqueue"
	"repoanalyzer.dev/logging"
	"repoanalyzer.dev/parsercontract"
	"repoanalyzer.dev/pattern"
	"repoanalyzer.dev/projection"
	"repoanalyzer.dev/relational"
	"repoanalyzer.dev/retry"
	"repoanalyzer.dev/txcoord"
)

// serviceProcessor dispatches dequeued jobqueue.Job values to the gateway,
// pattern, and projection primitives. It is the one place in this process
// that composes those primitives into a workflow; spec.md §1 excludes
// re-specifying the higher-level façade that would decide *when* to enqueue
// each kind, so this type only does the dispatching, not the deciding.
type serviceProcessor struct {
	coord       *txcoord.Coordinator
	gw          *gateway.Gateway
	projections *projection.Manager
	retryMgr    *retry.Manager
	policies    pattern.PolicyLookup
	log         *logging.Scoped
}

func newServiceProcessor(coord *txcoord.Coordinator, gw *gateway.Gateway, projections *projection.Manager, retryMgr *retry.Manager, policies pattern.PolicyLookup, log *logging.Scoped) *serviceProcessor {
	return &serviceProcessor{
		coord: coord, gw: gw, projections: projections, retryMgr: retryMgr, policies: policies,
		log: log.With(map[string]interface{}{"component": "processor"}),
	}
}

func (p *serviceProcessor) Timeout(job jobqueue.Job) time.Duration {
	if job.Kind == jobqueue.KindLearnCrossRepository {
		return 2 * time.Minute
	}
	return 30 * time.Second
}

func (p *serviceProcessor) withScope(ctx context.Context, fn func(ctx context.Context, scope *txcoord.Scope) error) error {
	return p.retryMgr.Do(ctx, func(ctx context.Context) error {
		scope, err := p.coord.OpenScope(ctx, true)
		if err != nil {
			return err
		}
		if err := fn(ctx, scope); err != nil {
			scope.Rollback(ctx)
			return err
		}
		return scope.Commit(ctx)
	})
}

func (p *serviceProcessor) Process(ctx context.Context, job jobqueue.Job) error {
	switch job.Kind {
	case jobqueue.KindIngestRepository:
		return p.processIngest(ctx, job)
	case jobqueue.KindLearnPatterns:
		return p.processLearn(ctx, job)
	case jobqueue.KindLearnCrossRepository:
		return p.processCrossLearn(ctx, job)
	case jobqueue.KindApplyPatterns:
		return p.processApply(ctx, job)
	default:
		return fmt.Errorf("processor: unknown job kind %q", job.Kind)
	}
}

func (p *serviceProcessor) processIngest(ctx context.Context, job jobqueue.Job) error {
	for _, f := range job.Files {
		if err := p.gw.StoreParsedContent(ctx, job.RepoID, f.Path, f.Language, f.AST, f.Features); err != nil {
			return fmt.Errorf("ingest %s: %w", f.Path, err)
		}
	}
	for _, d := range job.Docs {
		if _, err := p.gw.UpsertDoc(ctx, gateway.UpsertDocParams{
			RepoID: job.RepoID, FilePath: d.Path, Content: d.Content, Kind: relational.DocKind(d.Kind), IsPrimary: true,
		}); err != nil {
			return fmt.Errorf("ingest doc %s: %w", d.Path, err)
		}
	}
	return nil
}

func (p *serviceProcessor) processLearn(ctx context.Context, job jobqueue.Job) error {
	snap := pattern.Snapshot{
		RepoID:         job.RepoID,
		DirectoryShape: job.DirectoryShape,
	}
	for _, f := range job.Files {
		snap.Files = append(snap.Files, pattern.FileCandidate{
			FilePath: f.Path, Language: f.Language, Content: f.Content, RepeatedElements: repeatedElementsFromFeatures(f.Features),
		})
	}
	for _, d := range job.Docs {
		snap.Docs = append(snap.Docs, pattern.DocCandidate{FilePath: d.Path, Kind: d.Kind, Content: d.Content})
	}
	for _, dep := range job.DependencyPairs {
		snap.DependencyPairs = append(snap.DependencyPairs, pattern.DependencyPair{From: dep.From, To: dep.To})
	}

	return p.withScope(ctx, func(ctx context.Context, scope *txcoord.Scope) error {
		_, err := pattern.LearnFromRepository(ctx, scope, p.projections, embedclient.DeterministicStub{}, p.policies, snap)
		return err
	})
}

func (p *serviceProcessor) processCrossLearn(ctx context.Context, job jobqueue.Job) error {
	return p.withScope(ctx, func(ctx context.Context, scope *txcoord.Scope) error {
		_, err := pattern.LearnAcrossRepositories(ctx, scope, p.projections, job.RepoIDs)
		return err
	})
}

func (p *serviceProcessor) processApply(ctx context.Context, job jobqueue.Job) error {
	parser := languageLookupParser{byPath: make(map[string]string, len(job.Files))}
	targets := make([]pattern.TargetFile, 0, len(job.Files))
	for _, f := range job.Files {
		parser.byPath[f.Path] = f.Language
		targets = append(targets, pattern.TargetFile{FilePath: f.Path})
	}

	return p.withScope(ctx, func(ctx context.Context, scope *txcoord.Scope) error {
		th := config.DefaultThresholdConfig()
		recs, err := pattern.Recommend(ctx, p.projections, relTx{scope}, parser, job.RepoID, job.ReferenceID, targets,
			th.ProjectionTopK, th.ProjectionMaxPairs, th.ProjectionSimilarityCutoff)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := pattern.Apply(ctx, scope, p.projections, job.RepoID, rec, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func repeatedElementsFromFeatures(features map[string]interface{}) map[string]int {
	out := make(map[string]int)
	raw, ok := features["repeated_elements"].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		switch n := v.(type) {
		case int:
			out[k] = n
		case float64:
			out[k] = int(n)
		}
	}
	return out
}

// languageLookupParser satisfies parsercontract.Parser for already-parsed
// jobs: the real parser ran upstream of this process, so Parse here only
// needs to return the language the upstream caller already determined.
type languageLookupParser struct {
	byPath map[string]string
}

func (languageLookupParser) Supports(capability parsercontract.Capability) bool {
	return capability == parsercontract.SupportsFeatures
}

func (p languageLookupParser) Parse(ctx context.Context, filePath string, content []byte) (*parsercontract.ParsedFile, error) {
	return &parsercontract.ParsedFile{FilePath: filePath, Language: p.byPath[filePath], Kind: parsercontract.KindUnknown}, nil
}
