// Package queryplan implements component A of the pipeline: turning an
// input article's title into a QueryPlan the Dispatcher can fan out on.
package queryplan

import (
	"context"
	"strings"

	"perspectivelens/internal/core"
	"perspectivelens/internal/logger"
)

// DefaultConfidenceFloor is the minimum LanguageDetector confidence the
// planner accepts before falling back to the heuristic detector.
const DefaultConfidenceFloor = 0.6

// CanonicalQueryLanguage is the language search queries are issued in.
const CanonicalQueryLanguage = "en"

// Detection is one candidate returned by a LanguageDetector.
type Detection struct {
	Lang       string
	Confidence float64
}

// LanguageDetector identifies the language of a piece of text. Best-effort:
// the planner never fails the pipeline on a detector error, it falls back
// to the heuristic detector instead.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) ([]Detection, error)
}

// Translator translates text between two ISO 639-1 language codes.
// Best-effort: a translation failure degrades to using the original text,
// it never fails the pipeline.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// Planner produces a QueryPlan from an input article.
type Planner struct {
	Detector         LanguageDetector
	Translator       Translator
	ConfidenceFloor  float64
}

// New constructs a Planner with the given collaborators. A zero
// ConfidenceFloor is replaced with DefaultConfidenceFloor.
func New(detector LanguageDetector, translator Translator, confidenceFloor float64) *Planner {
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Planner{Detector: detector, Translator: translator, ConfidenceFloor: confidenceFloor}
}

// Plan builds the QueryPlan for the given article. Only an empty or
// whitespace-only title fails the call (ErrorKind InvalidInput); language
// detection and translation are best-effort and never surface an error
// here.
func (p *Planner) Plan(ctx context.Context, article core.Article) (core.QueryPlan, error) {
	title := strings.TrimSpace(article.Title)
	if title == "" {
		return core.QueryPlan{}, core.NewPipelineError(core.ErrInvalidInput, "article title is empty after trim", nil)
	}

	lang := strings.TrimSpace(article.DeclaredLanguage)
	if lang == "" {
		lang = p.detectLanguage(ctx, title)
	}
	lang = normalizeLang(lang)

	searchText := title
	wasTranslated := false
	if lang != CanonicalQueryLanguage && p.Translator != nil {
		translated, err := p.Translator.Translate(ctx, title, lang, CanonicalQueryLanguage)
		if err != nil {
			logger.Warn("translation failed, using original title: " + err.Error())
		} else if strings.TrimSpace(translated) != "" {
			searchText = strings.TrimSpace(translated)
			wasTranslated = true
		}
	}

	return core.QueryPlan{
		SearchText:             searchText,
		DetectedSourceLanguage: lang,
		WasTranslated:           wasTranslated,
	}, nil
}

// detectLanguage runs the injected detector, falling back to the
// heuristic script-range detector when the detector errors, returns no
// candidates, or its best candidate falls below the confidence floor.
func (p *Planner) detectLanguage(ctx context.Context, title string) string {
	if p.Detector != nil {
		detections, err := p.Detector.Detect(ctx, title)
		if err != nil {
			logger.Warn("language detection failed, using heuristic: " + err.Error())
		} else if best := highestConfidence(detections); best != nil && best.Confidence >= p.ConfidenceFloor {
			return best.Lang
		}
	}
	return HeuristicDetect(title)
}

// highestConfidence returns the candidate with the highest confidence,
// breaking ties by first-returned.
func highestConfidence(detections []Detection) *Detection {
	var best *Detection
	for i := range detections {
		d := detections[i]
		if best == nil || d.Confidence > best.Confidence {
			best = &d
		}
	}
	return best
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return CanonicalQueryLanguage
	}
	// Strip region/variant suffixes (e.g. "zh-CN" -> "zh", "pt-BR" -> "pt").
	if idx := strings.IndexAny(lang, "-_"); idx >= 0 {
		lang = lang[:idx]
	}
	return lang
}
