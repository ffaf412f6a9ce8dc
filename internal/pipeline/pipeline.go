// Package pipeline wires components A through F into the single
// top-level call external callers use: Analyze. It holds no state of its
// own between calls; every dependency is injected by the caller.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"perspectivelens/internal/analyzer"
	"perspectivelens/internal/config"
	"perspectivelens/internal/core"
	"perspectivelens/internal/dispatcher"
	"perspectivelens/internal/extractor"
	"perspectivelens/internal/logger"
	"perspectivelens/internal/modelbackend"
	"perspectivelens/internal/progress"
	"perspectivelens/internal/queryplan"
	"perspectivelens/internal/selector"
)

// ContentFetcher opens an extraction session. Satisfied by
// internal/contentfetcher.Fetcher via NewContentFetcher in adapters.go (or
// any test fake implementing it directly).
type ContentFetcher = extractor.ContentFetcher

// Dependencies bundles every external collaborator Analyze needs. Detector,
// Translator and Bus are optional: a nil Detector leaves language detection
// to the heuristic detector, a nil Translator keeps the original title, and
// a nil Bus silently discards progress events.
type Dependencies struct {
	Detector       queryplan.LanguageDetector
	Translator     queryplan.Translator
	SearchClient   dispatcher.SearchClient
	ContentFetcher ContentFetcher
	Chain          analyzer.Chain
	Bus            *progress.Bus
}

// Analyze runs the full pipeline for one input article: plan the query,
// dispatch searches across the configured countries, select a bounded
// subset, extract content, and run the four analysis stages. ctx is the
// cancellation token. The Dispatcher and the checks between stages report
// a cancellation as ErrCancelled; the check after extraction also attaches
// the partial artifact (input, query and extracted articles) to the
// returned PipelineError. A cancellation that interrupts extraction or an
// analysis stage in flight is reported through that stage's own error
// instead.
func Analyze(ctx context.Context, article core.Article, cfg *config.Config, deps Dependencies) (*core.AnalysisArtifact, error) {
	runID := uuid.New().String()
	log := logger.Stage("pipeline").With().Str("run_id", runID).Logger()
	start := time.Now()

	targets := core.SelectionTargets{
		PerCountry:       cfg.ArticleSelection.PerCountry,
		BufferPerCountry: cfg.ArticleSelection.BufferPerCountry,
		MaxForAnalysis:   cfg.ArticleSelection.MaxForAnalysis,
		AllowFallback:    cfg.ArticleSelection.AllowFallback,
	}

	// A. QueryPlanner
	planner := queryplan.New(deps.Detector, deps.Translator, queryplan.DefaultConfidenceFloor)
	plan, err := planner.Plan(ctx, article)
	if err != nil {
		log.Warn().Err(err).Msg("query planning failed")
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, core.NewPipelineError(core.ErrCancelled, "cancelled after query planning", ctx.Err())
	}

	// B. Dispatcher
	disp := dispatcher.New(deps.SearchClient, time.Duration(cfg.Search.TimeoutMs)*time.Millisecond, cfg.Search.RetryAttempts)
	candidates, err := disp.Dispatch(ctx, plan, targets, cfg.Search.Countries)
	if err != nil {
		log.Warn().Err(err).Msg("dispatch failed")
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, core.NewPipelineError(core.ErrCancelled, "cancelled after dispatch", ctx.Err())
	}

	// C. Selector
	selected, advisories := selector.Select(candidates, targets, article.URL)
	for _, a := range advisories {
		log.Info().Msg(a)
	}
	if ctx.Err() != nil {
		return nil, core.NewPipelineError(core.ErrCancelled, "cancelled after selection", ctx.Err())
	}

	// D. Extractor
	articles, err := extractor.Extract(ctx, selected, deps.ContentFetcher, cfg.Extraction)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed")
		return nil, err
	}
	if ctx.Err() != nil {
		partial := buildArtifact(article, plan, articles, nil, nil, nil, nil, nil, start)
		return nil, core.NewPipelineError(core.ErrCancelled, "cancelled after extraction", ctx.Err()).WithPartial(partial)
	}

	// E. Analyzer
	az := analyzer.New(deps.Chain, modelParams(cfg), deps.Bus)
	stage1, stage2, stage3, stage4, outcomes, err := az.Run(ctx, articles)
	if err != nil {
		pe, ok := err.(*core.PipelineError)
		if !ok {
			pe = core.NewPipelineError(core.ErrCriticalAnalysisFailed, "analysis failed", err)
		}
		partial := buildArtifact(article, plan, articles, stage1, stage2, nil, nil, outcomes, start)
		return nil, pe.WithPartial(partial)
	}

	artifact := buildArtifact(article, plan, articles, stage1, stage2, stage3, stage4, outcomes, start)
	log.Info().Int("articles_analyzed", artifact.Metadata.ArticlesAnalyzed).Msg("analysis complete")
	return artifact, nil
}

func modelParams(cfg *config.Config) modelbackend.Params {
	p, ok := cfg.Analysis.Models[cfg.Analysis.ModelProvider]
	if !ok {
		return modelbackend.Params{CompressionLevel: string(cfg.Analysis.CompressionLevel)}
	}
	return modelbackend.Params{
		Temperature:      p.Temperature,
		TopK:             p.TopK,
		TopP:             p.TopP,
		ThinkingBudget:   p.ThinkingBudget,
		CompressionLevel: string(cfg.Analysis.CompressionLevel),
	}
}

func buildArtifact(
	input core.Article,
	plan core.QueryPlan,
	articles []core.ScoredArticle,
	stage1 *core.Stage1Payload,
	stage2 *core.Stage2Payload,
	stage3 *core.Stage3Payload,
	stage4 *core.Stage4Payload,
	outcomes []core.StageOutcome,
	start time.Time,
) *core.AnalysisArtifact {
	analyzed := 0
	for _, a := range articles {
		if a.Content.Success {
			analyzed++
		}
	}

	var durations [4]int64
	for _, o := range outcomes {
		if o.Stage >= core.StageContextTrust && o.Stage <= core.StagePerspectiveDifferences {
			durations[o.Stage-1] = o.Duration.Milliseconds()
		}
	}

	return &core.AnalysisArtifact{
		Input:    input,
		Query:    plan,
		Articles: articles,
		Stage1:   stage1,
		Stage2:   stage2,
		Stage3:   stage3,
		Stage4:   stage4,
		Stages:   outcomes,
		Metadata: core.AnalysisMetadata{
			ArticlesAnalyzed: analyzed,
			ArticlesInput:    len(articles),
			TotalDurationMs:  time.Since(start).Milliseconds(),
			StageDurationsMs: durations,
			WasTranslated:    plan.WasTranslated,
			Timestamp:        time.Now(),
		},
	}
}
