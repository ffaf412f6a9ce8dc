// Package modelbackend abstracts schema-constrained text generation behind
// a Backend interface, with two concrete Gemini-backed implementations and
// a provider-fallback state machine (spec.md §4.5, §9).
package modelbackend

import (
	"context"
	"time"

	"perspectivelens/internal/core"
)

// Schema is a generation-backend-agnostic description of the JSON object a
// Generate call must return. It mirrors the subset of JSON Schema the
// Gemini SDKs accept for structured output.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Params are the per-call knobs handed to a Backend without interpretation.
// Both Gemini backends forward Temperature, TopP and a positive TopK to
// their SDK; ThinkingBudget is carried but neither backend sends it.
type Params struct {
	Temperature    float32
	TopK           int32
	TopP           float32
	ThinkingBudget int32
	// CompressionLevel is a hint to the prompt builder only ("short",
	// "medium", "long"); no Backend interprets it directly.
	CompressionLevel string
}

// Backend is one model provider capable of schema-constrained generation.
type Backend interface {
	// Name identifies the backend in logs and StageOutcome metadata.
	Name() string
	// Availability reports whether the backend is currently usable, without
	// making a generation call.
	Availability(ctx context.Context) error
	// Generate returns the raw JSON text produced by the model for prompt,
	// constrained to schema.
	Generate(ctx context.Context, prompt string, schema *Schema, params Params) (string, error)
}

// AvailabilityCache remembers the last-observed availability of each
// backend for a caller-configured TTL, replacing what would otherwise be a
// package-level mutable cache (DESIGN NOTES §9). Callers construct one per
// pipeline run or share one across runs with their own lifecycle.
type AvailabilityCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	err       error
	checkedAt time.Time
}

// NewAvailabilityCache returns a cache whose entries expire after ttl. A
// non-positive ttl disables caching (every call re-checks availability).
func NewAvailabilityCache(ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Check returns the cached availability result for backend, re-checking and
// storing a fresh result if the cache has no entry or it has expired.
func (c *AvailabilityCache) Check(ctx context.Context, backend Backend) error {
	if c.ttl > 0 {
		if entry, ok := c.entries[backend.Name()]; ok && time.Since(entry.checkedAt) < c.ttl {
			return entry.err
		}
	}
	err := backend.Availability(ctx)
	c.entries[backend.Name()] = cacheEntry{err: err, checkedAt: time.Now()}
	return err
}

// FallbackChain tries each Backend in order. Retryable kinds (rate,
// network, server, timeout) are retried in place with exponential backoff
// up to RetryAttempts times before moving to the next backend; a
// non-retryable kind such as BackendAuth or ModelSchemaViolation moves to
// the next backend at once, and a backend failing its availability check
// is skipped without a Generate call.
type FallbackChain struct {
	Backends      []Backend
	Cache         *AvailabilityCache
	RetryAttempts int
	RetryBaseDelay time.Duration
}

// DefaultRetryAttempts and DefaultRetryBaseDelay mirror the Dispatcher's
// retry shape (spec.md §4.2) applied to model calls.
const (
	DefaultRetryAttempts  = 2
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Generate walks the chain, returning the first successful result and the
// name of the backend that produced it. If every backend is exhausted, it
// returns the last error observed, unchanged.
func (f *FallbackChain) Generate(ctx context.Context, prompt string, schema *Schema, params Params) (string, string, error) {
	retryAttempts := f.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = DefaultRetryAttempts
	}
	baseDelay := f.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}

	var lastErr error
	for _, backend := range f.Backends {
		if f.Cache != nil {
			if err := f.Cache.Check(ctx, backend); err != nil {
				lastErr = err
				continue
			}
		}

		result, err := generateWithRetry(ctx, backend, prompt, schema, params, retryAttempts, baseDelay)
		if err == nil {
			return result, backend.Name(), nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = core.NewPipelineError(core.ErrBackendUnavailable, "no backends configured", nil)
	}
	return "", "", lastErr
}

func generateWithRetry(ctx context.Context, backend Backend, prompt string, schema *Schema, params Params, retryAttempts int, baseDelay time.Duration) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= retryAttempts+1; attempt++ {
		result, err := backend.Generate(ctx, prompt, schema, params)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt > retryAttempts {
			break
		}

		backoff := time.Duration(1<<(attempt-1)) * baseDelay
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}

func isRetryable(err error) bool {
	se, ok := err.(*core.StageError)
	if !ok {
		return false
	}
	return se.Retryable()
}
