package queryplan

import (
	"context"
	"errors"
	"testing"

	"perspectivelens/internal/core"
)

type fakeDetector struct {
	detections []Detection
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, text string) ([]Detection, error) {
	return f.detections, f.err
}

type fakeTranslator struct {
	out string
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	return f.out, f.err
}

func TestPlanRejectsEmptyTitle(t *testing.T) {
	p := New(nil, nil, 0)
	_, err := p.Plan(context.Background(), core.Article{Title: "   "})
	if err == nil {
		t.Fatal("expected error for empty title")
	}
	var pe *core.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *core.PipelineError, got %T", err)
	}
	if pe.Kind != core.ErrInvalidInput {
		t.Errorf("Kind = %q, want %q", pe.Kind, core.ErrInvalidInput)
	}
}

func TestPlanUsesDeclaredLanguageAndTranslates(t *testing.T) {
	p := New(nil, &fakeTranslator{out: "Central bank raises rates"}, 0)
	plan, err := p.Plan(context.Background(), core.Article{
		Title:            "Banco central aumenta juros",
		DeclaredLanguage: "pt",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.DetectedSourceLanguage != "pt" {
		t.Errorf("DetectedSourceLanguage = %q, want pt", plan.DetectedSourceLanguage)
	}
	if !plan.WasTranslated {
		t.Error("expected WasTranslated to be true")
	}
	if plan.SearchText != "Central bank raises rates" {
		t.Errorf("SearchText = %q", plan.SearchText)
	}
}

func TestPlanFallsBackOnTranslationFailure(t *testing.T) {
	p := New(nil, &fakeTranslator{err: errors.New("network down")}, 0)
	plan, err := p.Plan(context.Background(), core.Article{
		Title:            "Titulo en espanol",
		DeclaredLanguage: "es",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.WasTranslated {
		t.Error("expected WasTranslated to be false on translation failure")
	}
	if plan.SearchText != "Titulo en espanol" {
		t.Errorf("SearchText = %q, want original title", plan.SearchText)
	}
}

func TestPlanSkipsTranslationForEnglish(t *testing.T) {
	p := New(nil, &fakeTranslator{out: "should not be used"}, 0)
	plan, err := p.Plan(context.Background(), core.Article{
		Title:            "Central bank raises rates",
		DeclaredLanguage: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.WasTranslated {
		t.Error("expected no translation for English input")
	}
	if plan.SearchText != "Central bank raises rates" {
		t.Errorf("SearchText = %q", plan.SearchText)
	}
}

func TestPlanFallsBackToHeuristicBelowConfidenceFloor(t *testing.T) {
	p := New(&fakeDetector{detections: []Detection{{Lang: "fr", Confidence: 0.2}}}, nil, 0.6)
	plan, err := p.Plan(context.Background(), core.Article{Title: "中国银行加息"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.DetectedSourceLanguage != "zh" {
		t.Errorf("DetectedSourceLanguage = %q, want zh (heuristic should override low-confidence detector)", plan.DetectedSourceLanguage)
	}
}

func TestPlanPicksHighestConfidenceDetection(t *testing.T) {
	p := New(&fakeDetector{detections: []Detection{
		{Lang: "fr", Confidence: 0.7},
		{Lang: "de", Confidence: 0.9},
	}}, nil, 0.6)
	plan, err := p.Plan(context.Background(), core.Article{Title: "Some title"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.DetectedSourceLanguage != "de" {
		t.Errorf("DetectedSourceLanguage = %q, want de", plan.DetectedSourceLanguage)
	}
}

func TestHeuristicDetect(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Central bank raises rates", "en"},
		{"中央银行加息", "zh"},
		{"日本銀行が金利を引き上げる", "ja"},
		{"한국은행 금리 인상", "ko"},
		{"Банк России повысил ставку", "ru"},
		{"", "en"},
	}
	for _, c := range cases {
		if got := HeuristicDetect(c.text); got != c.want {
			t.Errorf("HeuristicDetect(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}
