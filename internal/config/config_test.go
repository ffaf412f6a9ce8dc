package config

import "testing"

func TestValidateFlagsUnknownCountryInPerCountry(t *testing.T) {
	cfg := &Config{
		Search: SearchConfig{Countries: DefaultCountries()},
		ArticleSelection: ArticleSelection{
			PerCountry:     map[string]int{"ZZ": 2},
			MaxForAnalysis: 10,
		},
		Extraction: ExtractionConfig{BatchSize: 5, Timeout: 1},
		Analysis:   AnalysisConfig{PreferredModels: []string{"gemini"}},
	}

	issues := cfg.Validate()
	found := false
	for _, issue := range issues {
		if issue == `article_selection.per_country: country "ZZ" not present in search.countries catalog` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an issue about unknown country ZZ, got %v", issues)
	}
}

func TestValidatePassesWithDefaults(t *testing.T) {
	cfg := &Config{
		Search:           SearchConfig{Countries: DefaultCountries()},
		ArticleSelection: ArticleSelection{PerCountry: map[string]int{"US": 2}, MaxForAnalysis: 10},
		Extraction:       ExtractionConfig{BatchSize: 5, Timeout: 1},
		Analysis:         AnalysisConfig{PreferredModels: []string{"gemini"}},
		Gemini:           Gemini{APIKey: "key"},
	}

	issues := cfg.Validate()
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidateCatchesNonPositiveCaps(t *testing.T) {
	cfg := &Config{
		Search:           SearchConfig{Countries: DefaultCountries()},
		ArticleSelection: ArticleSelection{MaxForAnalysis: 0, BufferPerCountry: -1},
		Extraction:       ExtractionConfig{BatchSize: 0, Timeout: 0},
		Analysis:         AnalysisConfig{},
	}

	issues := cfg.Validate()
	if len(issues) < 4 {
		t.Errorf("expected at least 4 issues, got %v", issues)
	}
}

func TestDefaultCountriesNormalizesChineseCode(t *testing.T) {
	for _, cs := range DefaultCountries() {
		if cs.Code == "CN" && cs.SearchLanguage != "zh" {
			t.Errorf("expected CN search language to be zh, got %q", cs.SearchLanguage)
		}
	}
}
