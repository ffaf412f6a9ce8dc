// Package dispatcher implements component B of the pipeline: issuing one
// search per configured country, in parallel, with per-task timeout and
// bounded retries, tolerating partial failure.
package dispatcher

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"perspectivelens/internal/core"
	"perspectivelens/internal/logger"
)

// DefaultTimeout is the per-country wall-clock timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetryAttempts is the number of attempts made for one country's
// task, including the first.
const DefaultRetryAttempts = 2

// RetryBaseDelay is the base of the exponential backoff between retries.
const RetryBaseDelay = 500 * time.Millisecond

// SearchClient is the external collaborator Dispatcher fans out to, one
// call per country.
type SearchClient interface {
	Search(ctx context.Context, query, country, language string, maxResults int) ([]core.SearchResult, error)
}

// Dispatcher runs one search task per configured country.
type Dispatcher struct {
	Client        SearchClient
	Timeout       time.Duration
	RetryAttempts int
}

// New constructs a Dispatcher. Zero timeout/retryAttempts fall back to
// the package defaults.
func New(client SearchClient, timeout time.Duration, retryAttempts int) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryAttempts <= 0 {
		retryAttempts = DefaultRetryAttempts
	}
	return &Dispatcher{Client: client, Timeout: timeout, RetryAttempts: retryAttempts}
}

// Dispatch issues one task per country listed in targets.PerCountry, in
// parallel, and returns the combined results. A country with a requested
// count of 0 is skipped entirely. No single country's failure aborts the
// others; the stage only fails if every country returns zero results.
func (d *Dispatcher) Dispatch(ctx context.Context, plan core.QueryPlan, targets core.SelectionTargets, countries []core.CountrySpec) ([]core.SearchResult, error) {
	byCode := make(map[string]core.CountrySpec, len(countries))
	for _, c := range countries {
		byCode[c.Code] = c
	}

	type countryTask struct {
		spec       core.CountrySpec
		maxResults int
	}

	type countryOutcome struct {
		code    string
		results []core.SearchResult
	}

	var tasks []countryTask
	for code, requested := range targets.PerCountry {
		if requested <= 0 {
			continue
		}
		spec, ok := byCode[code]
		if !ok {
			logger.Warn("skipping country not present in catalog: " + code)
			continue
		}
		tasks = append(tasks, countryTask{spec: spec, maxResults: requested + targets.BufferPerCountry})
	}

	outcomes := make([]countryOutcome, len(tasks))
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			outcomes[i] = countryOutcome{code: task.spec.Code, results: d.searchWithRetry(gctx, plan, task.spec, task.maxResults)}
			return nil
		})
	}

	// Every task returns nil (per-country failures are recorded, not
	// propagated), so Wait only waits; a caller cancellation is read from
	// ctx afterwards.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, core.NewPipelineError(core.ErrCancelled, "dispatch cancelled", err)
	}

	var all []core.SearchResult
	anyResults := false
	for _, o := range outcomes {
		if len(o.results) > 0 {
			anyResults = true
		}
		all = append(all, o.results...)
	}

	if !anyResults {
		return nil, core.NewPipelineError(core.ErrNoSearchResults, "every configured country returned zero results", nil)
	}

	return all, nil
}

// searchWithRetry runs one country's task with a wall-clock timeout and
// bounded exponential-backoff retries. It never returns an error: a
// failed or timed-out country simply contributes zero results, per
// spec.md §4.2's failure semantics.
func (d *Dispatcher) searchWithRetry(ctx context.Context, plan core.QueryPlan, spec core.CountrySpec, maxResults int) []core.SearchResult {
	var lastErr error
	for attempt := 0; attempt < d.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		if attempt > 0 {
			backoff := time.Duration(float64(RetryBaseDelay) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
		}

		taskCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		results, err := d.Client.Search(taskCtx, plan.SearchText, spec.Code, spec.SearchLanguage, maxResults)
		cancel()

		if err == nil {
			return results
		}
		lastErr = err

		if se, ok := err.(*core.StageError); ok && !se.Retryable() {
			break
		}
	}

	if lastErr != nil {
		logger.Warn("search failed for country " + spec.Code + ": " + lastErr.Error())
	}
	return nil
}
