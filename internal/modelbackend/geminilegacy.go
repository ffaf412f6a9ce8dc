package modelbackend

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"perspectivelens/internal/core"
)

// GeminiLegacy is the fallback Backend, built on the older
// github.com/google/generative-ai-go/genai SDK (grounded on the teacher's
// internal/llm/traced_client.go + internal/pipeline/builder.go, which
// imports this same package for structured summaries). It exists so the
// provider-fallback chain is a real second implementation, not a repeat of
// the primary one.
type GeminiLegacy struct {
	client *genai.Client
	model  string
}

// NewGeminiLegacy constructs a fallback backend for apiKey/model.
func NewGeminiLegacy(ctx context.Context, apiKey, model string) (*GeminiLegacy, error) {
	if apiKey == "" {
		return nil, core.NewPipelineError(core.ErrBackendAuth, "gemini legacy API key is empty", nil)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating legacy gemini client: %w", err)
	}
	return &GeminiLegacy{client: client, model: model}, nil
}

func (g *GeminiLegacy) Name() string { return "geminilegacy:" + g.model }

func (g *GeminiLegacy) Availability(ctx context.Context) error {
	if g.client == nil {
		return core.NewPipelineError(core.ErrBackendUnavailable, "legacy gemini client not initialized", nil)
	}
	return nil
}

func (g *GeminiLegacy) Generate(ctx context.Context, prompt string, schema *Schema, params Params) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.Temperature = &params.Temperature
	model.TopP = &params.TopP
	if params.TopK > 0 {
		topK := params.TopK
		model.TopK = &topK
	}
	if schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toLegacySchema(schema)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyLegacyError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &core.StageError{Kind: core.ErrModelJSONParse, Message: "no candidates returned"}
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", &core.StageError{Kind: core.ErrModelJSONParse, Message: "empty response from legacy model"}
	}
	return b.String(), nil
}

func toLegacySchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        legacyType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toLegacySchema(v)
		}
	}
	if s.Items != nil {
		out.Items = toLegacySchema(s.Items)
	}
	return out
}

func legacyType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func classifyLegacyError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "permission") || strings.Contains(lower, "api key"):
		return &core.StageError{Kind: core.ErrBackendAuth, Message: msg, Cause: err}
	case strings.Contains(lower, "rate") || strings.Contains(lower, "quota") || strings.Contains(lower, "429"):
		return &core.StageError{Kind: core.ErrBackendRate, Message: msg, Cause: err}
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return &core.StageError{Kind: core.ErrBackendTimeout, Message: msg, Cause: err}
	default:
		return &core.StageError{Kind: core.ErrBackendNetwork, Message: msg, Cause: err}
	}
}
