// Package extractor implements component D: batch-bounded-parallel content
// extraction over a scoped ContentFetcher session (spec.md §4.4).
package extractor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"perspectivelens/internal/config"
	"perspectivelens/internal/core"
	"perspectivelens/internal/quality"
)

// Session is the scoped resource an injected ContentFetcher opens before
// the first batch and releases on every exit path.
type Session interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) core.ExtractedContent
	Close() error
}

// ContentFetcher opens a Session. Implemented by internal/contentfetcher's
// Fetcher in production and by a hand-rolled fake in tests.
type ContentFetcher interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Extract hydrates each SearchResult with an ExtractedContent in batches of
// cfg.BatchSize, applying a single quality-aware retry when enabled, and
// returns a ScoredArticle per input (including failures). The stage fails
// with ErrInsufficientExtracted only if fewer than two ScoredArticles
// succeeded.
func Extract(ctx context.Context, results []core.SearchResult, fetcher ContentFetcher, cfg config.ExtractionConfig) ([]core.ScoredArticle, error) {
	session, err := fetcher.OpenSession(ctx)
	if err != nil {
		return nil, core.NewPipelineError(core.ErrExtractionFailed, "opening fetch session", err)
	}
	defer func() { _ = session.Close() }()

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	thresholds := quality.DefaultThresholds()
	minQuality := cfg.QualityThresholds.MinQualityScore
	if minQuality <= 0 {
		minQuality = 60
	}

	// fetch records a body shorter than the configured minimum content
	// length as a failure, so Success always implies that minimum.
	minLength := cfg.QualityThresholds.MinContentLength
	fetch := func(ctx context.Context, url string) core.ExtractedContent {
		content := session.Fetch(ctx, url, timeout)
		if content.Success && len(content.Body) < minLength {
			content.Success = false
			content.ErrorKind = core.ErrExtractionFailed
		}
		return content
	}

	articles := make([]core.ScoredArticle, len(results))

	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		g, gCtx := errgroup.WithContext(ctx)
		var mu sync.Mutex

		for offset, result := range batch {
			idx := start + offset
			result := result
			g.Go(func() error {
				content := fetch(gCtx, result.URL)
				scored := core.ScoredArticle{Result: result, Content: content}
				quality.ScoreArticle(&scored, thresholds)

				if content.Success && cfg.RetryLowQuality && scored.QualityScore < minQuality {
					retryContent := fetch(gCtx, result.URL)
					retry := core.ScoredArticle{Result: result, Content: retryContent}
					quality.ScoreArticle(&retry, thresholds)
					if retry.QualityScore > scored.QualityScore {
						scored = retry
					}
				}

				mu.Lock()
				articles[idx] = scored
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	successes := 0
	for _, a := range articles {
		if a.Content.Success {
			successes++
		}
	}
	if successes < 2 {
		return articles, core.NewPipelineError(core.ErrInsufficientExtracted, "fewer than two articles extracted successfully", nil)
	}

	return articles, nil
}
