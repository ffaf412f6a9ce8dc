// Package quality computes the bounded quality score memoized onto a
// ScoredArticle (spec.md §3). Each signal contributes an independently
// bounded amount; the sum is never re-derived differently for identical
// inputs (quality-score monotonicity, spec.md §8).
package quality

import "perspectivelens/internal/core"

// Thresholds configures the length/word-count bands the score rewards.
type Thresholds struct {
	SweetSpotMinChars int
	SweetSpotMaxChars int
	MinWordCount      int
	MaxWordCount      int
}

// DefaultThresholds returns the bands described in spec.md §3: a sweet
// spot of 3000-8000 characters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SweetSpotMinChars: 3000,
		SweetSpotMaxChars: 8000,
		MinWordCount:      50,
		MaxWordCount:      3000,
	}
}

const (
	successPoints    = 20.0
	lengthBandPoints = 25.0
	excerptPoints    = 10.0
	wordCountPoints  = 20.0
	methodPriorPoints = 15.0
	callerPriorWeight = 0.2
)

var methodPriors = map[core.ExtractionMethod]float64{
	core.ExtractionMethodReadable: 1.0,
	core.ExtractionMethodHTML:     0.7,
	core.ExtractionMethodAMP:      0.6,
	core.ExtractionMethodUnknown:  0.2,
}

// Score computes the quality score for one ExtractedContent. Identical
// inputs (length, excerpt presence, word count, method, and caller prior)
// always yield identical output — the function holds no state and reads
// no external source.
func Score(content core.ExtractedContent, thresholds Thresholds) float64 {
	var score float64

	if content.Success {
		score += successPoints
	}

	score += lengthBandScore(len(content.Body), thresholds) * lengthBandPoints

	if content.Excerpt != "" {
		score += excerptPoints
	}

	score += wordCountBandScore(wordCount(content.Body), thresholds) * wordCountPoints

	score += methodPriors[content.Method] * methodPriorPoints

	if content.Quality != nil {
		score += *content.Quality * callerPriorWeight * 100
	}

	return score
}

// lengthBandScore returns 1.0 within the configured sweet spot, tapering
// linearly to 0 outside it.
func lengthBandScore(length int, t Thresholds) float64 {
	if length >= t.SweetSpotMinChars && length <= t.SweetSpotMaxChars {
		return 1.0
	}
	if length < t.SweetSpotMinChars {
		if t.SweetSpotMinChars == 0 {
			return 0
		}
		return clamp01(float64(length) / float64(t.SweetSpotMinChars))
	}
	over := length - t.SweetSpotMaxChars
	span := t.SweetSpotMaxChars
	if span == 0 {
		return 0
	}
	return clamp01(1.0 - float64(over)/float64(span))
}

func wordCountBandScore(words int, t Thresholds) float64 {
	if words >= t.MinWordCount && words <= t.MaxWordCount {
		return 1.0
	}
	if words < t.MinWordCount {
		if t.MinWordCount == 0 {
			return 0
		}
		return clamp01(float64(words) / float64(t.MinWordCount))
	}
	return 0.5
}

func wordCount(body string) int {
	count := 0
	inWord := false
	for _, r := range body {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ScoreArticle computes and memoizes the quality score onto a
// ScoredArticle's QualityScore field, returning the updated value for
// convenience.
func ScoreArticle(article *core.ScoredArticle, thresholds Thresholds) float64 {
	article.QualityScore = Score(article.Content, thresholds)
	return article.QualityScore
}
