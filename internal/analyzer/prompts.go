package analyzer

import (
	"fmt"

	"perspectivelens/internal/core"
	"perspectivelens/internal/modelbackend"
)

const stage1Template = `You are comparing international news coverage of the same story across multiple sources.

Summarize the story in 25 words or fewer, assess how much the sources agree with one another, and state one concrete action a reader should take given the level of agreement (20 words or fewer).

Sources:
%s`

const stage2Template = `You are comparing international news coverage of the same story across multiple sources.

List up to 4 facts that at least two independent sources agree on. Do not include a fact unless two or more sources confirm it.

Sources:
%s`

const stage3Template = `You are comparing international news coverage of the same story across multiple sources.

List up to 3 factual disputes: specific points where sources make conflicting claims about the same fact. If sources do not conflict on any fact, return an empty list.

Sources:
%s`

const stage4Template = `You are comparing international news coverage of the same story across multiple sources.

List up to 3 angles where coverage differs by audience or region: what one group of sources emphasizes versus what another group emphasizes about the same story. If coverage does not meaningfully differ, return an empty list.

Sources:
%s`

func stagePrompt(stage core.StageID, articlesBlock string, compressionLevel string) string {
	var template string
	switch stage {
	case core.StageContextTrust:
		template = stage1Template
	case core.StageConsensus:
		template = stage2Template
	case core.StageFactualDisputes:
		template = stage3Template
	case core.StagePerspectiveDifferences:
		template = stage4Template
	default:
		return articlesBlock
	}
	return compressionHint(compressionLevel) + fmt.Sprintf(template, articlesBlock)
}

// compressionHint renders the configured compression level as a one-line
// prefix to the model, a hint only; the core never compresses text itself.
func compressionHint(level string) string {
	switch level {
	case "short":
		return "Be maximally concise; favor brevity over nuance.\n\n"
	case "long":
		return "Favor thoroughness and nuance over brevity.\n\n"
	default:
		return ""
	}
}

var stage1Schema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"story_summary": {Type: "string", Description: "25 words or fewer"},
		"trust_signal":  {Type: "string", Description: "one of high_agreement, some_conflicts, major_disputes"},
		"reader_action": {Type: "string", Description: "20 words or fewer"},
	},
	Required: []string{"story_summary", "trust_signal", "reader_action"},
}

var consensusFactSchema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"fact":    {Type: "string"},
		"sources": {Type: "array", Items: &modelbackend.Schema{Type: "string"}},
	},
	Required: []string{"fact", "sources"},
}

var stage2Schema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"consensus": {Type: "array", Items: consensusFactSchema, Description: "at most 4 items"},
	},
	Required: []string{"consensus"},
}

var factualDisputeSchema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"what":      {Type: "string"},
		"claim_a":   {Type: "string"},
		"claim_b":   {Type: "string"},
		"sources_a": {Type: "array", Items: &modelbackend.Schema{Type: "string"}},
		"sources_b": {Type: "array", Items: &modelbackend.Schema{Type: "string"}},
	},
	Required: []string{"what", "claim_a", "claim_b", "sources_a", "sources_b"},
}

var stage3Schema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"factual_disputes": {Type: "array", Items: factualDisputeSchema, Description: "at most 3 items; may be empty"},
	},
	Required: []string{"factual_disputes"},
}

var coverageAngleSchema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"angle":          {Type: "string"},
		"group1":         {Type: "string"},
		"group1_sources": {Type: "array", Items: &modelbackend.Schema{Type: "string"}},
		"group2":         {Type: "string"},
		"group2_sources": {Type: "array", Items: &modelbackend.Schema{Type: "string"}},
	},
	Required: []string{"angle", "group1", "group1_sources", "group2", "group2_sources"},
}

var stage4Schema = &modelbackend.Schema{
	Type: "object",
	Properties: map[string]*modelbackend.Schema{
		"coverage_angles": {Type: "array", Items: coverageAngleSchema, Description: "at most 3 items; may be empty"},
	},
	Required: []string{"coverage_angles"},
}
