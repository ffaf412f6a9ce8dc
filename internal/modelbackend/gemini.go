package modelbackend

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"perspectivelens/internal/core"
)

// Gemini is the primary Backend, built on the current google.golang.org/genai
// SDK (grounded on the teacher's internal/llm.Client.generateContent and
// internal/summarize's response_schema usage).
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini backend for apiKey/model. The client is
// created eagerly so Availability can be checked without a live call.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, core.NewPipelineError(core.ErrBackendAuth, "gemini API key is empty", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

// Availability performs no network call; the SDK client construction
// already validated the API key shape. A richer health check (a cheap
// models.list call) is left to the caller's retry/backoff on Generate.
func (g *Gemini) Availability(ctx context.Context) error {
	if g.client == nil {
		return core.NewPipelineError(core.ErrBackendUnavailable, "gemini client not initialized", nil)
	}
	return nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string, schema *Schema, params Params) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(params.Temperature),
		TopP:        genai.Ptr(params.TopP),
	}
	if params.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(params.TopK))
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(schema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", classifyGenaiError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &core.StageError{Kind: core.ErrModelJSONParse, Message: "empty response from model"}
	}
	return text, nil
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	return out
}

func genaiType(t string) genai.Type {
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

func classifyGenaiError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "permission") || strings.Contains(lower, "api key"):
		return &core.StageError{Kind: core.ErrBackendAuth, Message: msg, Cause: err}
	case strings.Contains(lower, "rate") || strings.Contains(lower, "quota") || strings.Contains(lower, "429"):
		return &core.StageError{Kind: core.ErrBackendRate, Message: msg, Cause: err}
	case strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout"):
		return &core.StageError{Kind: core.ErrBackendTimeout, Message: msg, Cause: err}
	case strings.Contains(lower, "unavailable") || strings.Contains(lower, "internal") || strings.Contains(lower, "500"):
		return &core.StageError{Kind: core.ErrBackendServer, Message: msg, Cause: err}
	default:
		return &core.StageError{Kind: core.ErrBackendNetwork, Message: msg, Cause: err}
	}
}
