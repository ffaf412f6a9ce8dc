// Package analyzer implements component E: four sequential,
// schema-constrained model calls over the extracted articles, with a
// critical-vs-non-critical failure policy (spec.md §4.5).
package analyzer

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"perspectivelens/internal/core"
	"perspectivelens/internal/modelbackend"
	"perspectivelens/internal/progress"
)

// Chain is the subset of FallbackChain.Generate the Analyzer depends on,
// narrowed to ease testing with a hand-rolled fake.
type Chain interface {
	Generate(ctx context.Context, prompt string, schema *modelbackend.Schema, params modelbackend.Params) (string, string, error)
}

// Analyzer runs the four staged prompts over a set of successfully
// extracted articles.
type Analyzer struct {
	Chain  Chain
	Params modelbackend.Params
	Bus    *progress.Bus
}

// New constructs an Analyzer. bus may be nil, in which case progress
// events are silently discarded.
func New(chain Chain, params modelbackend.Params, bus *progress.Bus) *Analyzer {
	return &Analyzer{Chain: chain, Params: params, Bus: bus}
}

// Run executes all four stages in order over articles, returning the
// populated payload pointers and per-stage outcomes. If a critical stage
// fails after its provider chain is exhausted, Run returns a
// PipelineError with Kind ErrCriticalAnalysisFailed and the Stage1/2
// payloads produced so far.
func (a *Analyzer) Run(ctx context.Context, articles []core.ScoredArticle) (*core.Stage1Payload, *core.Stage2Payload, *core.Stage3Payload, *core.Stage4Payload, []core.StageOutcome, error) {
	block := formatArticles(articles)

	var outcomes []core.StageOutcome

	stage1, outcome1, err := runStage(ctx, a, core.StageContextTrust, block, stage1Schema, func(raw string) (core.Stage1Payload, error) {
		var p core.Stage1Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, err
		}
		if p.StorySummary == "" || p.TrustSignal == "" || p.ReaderAction == "" {
			return p, errMissingRequired
		}
		return p, nil
	})
	outcomes = append(outcomes, outcome1)
	if err != nil {
		return nil, nil, nil, nil, outcomes, core.NewPipelineError(core.ErrCriticalAnalysisFailed, "context & trust stage failed", err)
	}

	stage2, outcome2, err := runStage(ctx, a, core.StageConsensus, block, stage2Schema, func(raw string) (core.Stage2Payload, error) {
		var p core.Stage2Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, err
		}
		if !hasKey(raw, "consensus") {
			return p, errMissingRequired
		}
		return p, nil
	})
	outcomes = append(outcomes, outcome2)
	if err != nil {
		return &stage1, nil, nil, nil, outcomes, core.NewPipelineError(core.ErrCriticalAnalysisFailed, "consensus stage failed", err)
	}

	stage3, outcome3, err := runStage(ctx, a, core.StageFactualDisputes, block, stage3Schema, func(raw string) (core.Stage3Payload, error) {
		var p core.Stage3Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, err
		}
		if !hasKey(raw, "factual_disputes") {
			return p, errMissingRequired
		}
		return p, nil
	})
	outcomes = append(outcomes, outcome3)
	if err != nil {
		stage3 = core.Stage3Payload{}
	}

	stage4, outcome4, err := runStage(ctx, a, core.StagePerspectiveDifferences, block, stage4Schema, func(raw string) (core.Stage4Payload, error) {
		var p core.Stage4Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return p, err
		}
		if !hasKey(raw, "coverage_angles") {
			return p, errMissingRequired
		}
		return p, nil
	})
	outcomes = append(outcomes, outcome4)
	if err != nil {
		stage4 = core.Stage4Payload{}
	}

	return &stage1, &stage2, &stage3, &stage4, outcomes, nil
}

var errMissingRequired = &core.StageError{Kind: core.ErrModelSchemaViolation, Message: "missing required field"}

// hasKey reports whether raw is a JSON object containing key, distinguishing
// an absent field from one explicitly set to an empty array or null.
func hasKey(raw string, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func runStage[T any](ctx context.Context, a *Analyzer, stage core.StageID, articlesBlock string, schema *modelbackend.Schema, parse func(string) (T, error)) (T, core.StageOutcome, error) {
	var zero T
	start := time.Now()

	a.publish(stage, "start", progress.StatusActive, "", 0)

	prompt := stagePrompt(stage, articlesBlock, a.Params.CompressionLevel)
	raw, _, err := a.Chain.Generate(ctx, prompt, schema, a.Params)
	if err != nil {
		a.publish(stage, "generate", progress.StatusError, err.Error(), 100)
		return zero, core.StageOutcome{
			Stage:     stage,
			Critical:  stage.Critical(),
			Duration:  time.Since(start),
			Success:   false,
			ErrorKind: classify(err),
		}, err
	}

	payload, err := parse(raw)
	if err != nil {
		a.publish(stage, "parse", progress.StatusError, err.Error(), 100)
		return zero, core.StageOutcome{
			Stage:     stage,
			Critical:  stage.Critical(),
			Duration:  time.Since(start),
			Success:   false,
			ErrorKind: classify(err),
		}, err
	}

	a.publish(stage, "done", progress.StatusCompleted, "", 100)
	return payload, core.StageOutcome{
		Stage:    stage,
		Critical: stage.Critical(),
		Payload:  payload,
		Duration: time.Since(start),
		Success:  true,
	}, nil
}

func classify(err error) core.ErrorKind {
	if se, ok := err.(*core.StageError); ok {
		return se.Kind
	}
	return core.ErrModelJSONParse
}

func (a *Analyzer) publish(stage core.StageID, step string, status progress.Status, message string, percent int) {
	if a.Bus == nil {
		return
	}
	a.Bus.Publish(progress.Event{StageID: stage, Step: step, Status: status, Message: message, Percent: percent})
}

// formatArticles renders the extracted articles into the single data block
// appended after each stage's fixed prompt template.
func formatArticles(articles []core.ScoredArticle) string {
	var b strings.Builder
	for i, a := range articles {
		if !a.Content.Success {
			continue
		}
		b.WriteString("=== Source ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(" (")
		b.WriteString(a.Result.Source)
		b.WriteString(", ")
		b.WriteString(a.Result.CountryCode)
		b.WriteString(") ===\n")
		b.WriteString(a.Result.Title)
		b.WriteString("\n")
		b.WriteString(a.Content.Body)
		b.WriteString("\n\n")
	}
	return b.String()
}
