package core

import "testing"

func TestStageIDString(t *testing.T) {
	cases := []struct {
		stage StageID
		want  string
	}{
		{StageContextTrust, "context_trust"},
		{StageConsensus, "consensus"},
		{StageFactualDisputes, "factual_disputes"},
		{StagePerspectiveDifferences, "perspective_differences"},
		{StageID(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.stage.String(); got != c.want {
			t.Errorf("StageID(%d).String() = %q, want %q", c.stage, got, c.want)
		}
	}
}

func TestStageIDCritical(t *testing.T) {
	critical := []StageID{StageContextTrust, StageConsensus}
	nonCritical := []StageID{StageFactualDisputes, StagePerspectiveDifferences}

	for _, s := range critical {
		if !s.Critical() {
			t.Errorf("expected stage %s to be critical", s)
		}
	}
	for _, s := range nonCritical {
		if s.Critical() {
			t.Errorf("expected stage %s to be non-critical", s)
		}
	}
}

func TestScoredArticleHoldsResultAndContent(t *testing.T) {
	sa := ScoredArticle{
		Result: SearchResult{
			Title:       "Central bank raises rates",
			Source:      "Example Times",
			CountryCode: "US",
			Language:    "en",
			URL:         "https://example.com/a",
		},
		Content: ExtractedContent{
			FinalURL: "https://example.com/a",
			Body:     "some article body",
			Method:   ExtractionMethodHTML,
			Success:  true,
		},
		QualityScore: 72.5,
	}

	if sa.Result.CountryCode != "US" {
		t.Errorf("Result.CountryCode = %q, want US", sa.Result.CountryCode)
	}
	if !sa.Content.Success {
		t.Error("expected Content.Success to be true")
	}
	if sa.QualityScore != 72.5 {
		t.Errorf("QualityScore = %v, want 72.5", sa.QualityScore)
	}
}

func TestSelectionTargetsShape(t *testing.T) {
	st := SelectionTargets{
		PerCountry:       map[string]int{"US": 2, "BR": 2},
		BufferPerCountry: 1,
		MaxForAnalysis:   8,
		AllowFallback:    true,
	}

	if st.PerCountry["US"] != 2 {
		t.Errorf("PerCountry[US] = %d, want 2", st.PerCountry["US"])
	}
	if st.MaxForAnalysis != 8 {
		t.Errorf("MaxForAnalysis = %d, want 8", st.MaxForAnalysis)
	}
}

func TestPipelineErrorFormatsKindAndCause(t *testing.T) {
	cause := &StageError{Kind: ErrBackendAuth, Message: "401 from provider"}
	err := NewPipelineError(ErrCriticalAnalysisFailed, "stage 2 exhausted all providers", cause)

	if err.Kind != ErrCriticalAnalysisFailed {
		t.Errorf("Kind = %q, want %q", err.Kind, ErrCriticalAnalysisFailed)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the wrapped cause")
	}
	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
}

func TestPipelineErrorWithPartial(t *testing.T) {
	artifact := &AnalysisArtifact{Input: Article{URL: "https://example.com/a"}}
	err := NewPipelineError(ErrNoSearchResults, "all countries empty", nil).WithPartial(artifact)

	if err.Partial != artifact {
		t.Error("WithPartial did not attach the artifact")
	}
}

func TestStageErrorRetryable(t *testing.T) {
	retryable := []ErrorKind{ErrSearchTransient, ErrBackendRate, ErrBackendNetwork, ErrBackendServer, ErrBackendTimeout}
	notRetryable := []ErrorKind{ErrSearchPermanent, ErrBackendAuth, ErrModelSchemaViolation, ErrModelJSONParse, ErrInvalidInput}

	for _, k := range retryable {
		e := &StageError{Kind: k}
		if !e.Retryable() {
			t.Errorf("expected %s to be retryable", k)
		}
	}
	for _, k := range notRetryable {
		e := &StageError{Kind: k}
		if e.Retryable() {
			t.Errorf("expected %s to not be retryable", k)
		}
	}
}
