package modelbackend

import (
	"context"
	"testing"
	"time"

	"perspectivelens/internal/core"
)

type fakeBackend struct {
	name         string
	availErr     error
	availCalls   int
	generateErr  []error // consumed in order; last value repeats
	generateText string
	calls        int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Availability(ctx context.Context) error {
	f.availCalls++
	return f.availErr
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, schema *Schema, params Params) (string, error) {
	idx := f.calls
	if idx >= len(f.generateErr) {
		idx = len(f.generateErr) - 1
	}
	f.calls++
	if idx >= 0 && f.generateErr[idx] != nil {
		return "", f.generateErr[idx]
	}
	return f.generateText, nil
}

func TestFallbackChainUsesFirstSuccessfulBackend(t *testing.T) {
	primary := &fakeBackend{name: "primary", generateText: `{"ok":true}`}
	secondary := &fakeBackend{name: "secondary", generateText: `{"ok":false}`}

	chain := &FallbackChain{Backends: []Backend{primary, secondary}}
	result, name, err := chain.Generate(context.Background(), "prompt", nil, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "primary" || result != `{"ok":true}` {
		t.Errorf("expected primary's result, got backend=%s result=%s", name, result)
	}
	if secondary.calls != 0 {
		t.Error("expected secondary to be untouched when primary succeeds")
	}
}

func TestFallbackChainMovesToNextBackendOnNonRetryableError(t *testing.T) {
	primary := &fakeBackend{name: "primary", generateErr: []error{
		&core.StageError{Kind: core.ErrModelSchemaViolation},
	}}
	secondary := &fakeBackend{name: "secondary", generateText: `{"ok":true}`}

	chain := &FallbackChain{Backends: []Backend{primary, secondary}, RetryBaseDelay: time.Millisecond}
	result, name, err := chain.Generate(context.Background(), "prompt", nil, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "secondary" || result != `{"ok":true}` {
		t.Errorf("expected fallback to secondary, got backend=%s result=%s", name, result)
	}
}

func TestFallbackChainRetriesRetryableErrorsInPlace(t *testing.T) {
	primary := &fakeBackend{name: "primary", generateErr: []error{
		&core.StageError{Kind: core.ErrBackendRate},
		&core.StageError{Kind: core.ErrBackendRate},
		nil,
	}, generateText: `{"ok":true}`}

	chain := &FallbackChain{Backends: []Backend{primary}, RetryAttempts: 2, RetryBaseDelay: time.Millisecond}
	result, name, err := chain.Generate(context.Background(), "prompt", nil, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "primary" || result != `{"ok":true}` {
		t.Errorf("expected retried success on primary, got backend=%s result=%s err=%v", name, result, err)
	}
	if primary.calls != 3 {
		t.Errorf("expected 3 attempts (2 retries + success), got %d", primary.calls)
	}
}

func TestFallbackChainReturnsLastErrorWhenAllExhausted(t *testing.T) {
	primary := &fakeBackend{name: "primary", generateErr: []error{&core.StageError{Kind: core.ErrBackendAuth}}}
	secondary := &fakeBackend{name: "secondary", generateErr: []error{&core.StageError{Kind: core.ErrBackendAuth}}}

	chain := &FallbackChain{Backends: []Backend{primary, secondary}, RetryBaseDelay: time.Millisecond}
	_, _, err := chain.Generate(context.Background(), "prompt", nil, Params{})
	if err == nil {
		t.Fatal("expected an error when every backend fails")
	}
}

func TestFallbackChainSkipsBackendFailingAvailabilityCheck(t *testing.T) {
	primary := &fakeBackend{name: "primary", availErr: core.NewPipelineError(core.ErrBackendUnavailable, "down", nil)}
	secondary := &fakeBackend{name: "secondary", generateText: `{"ok":true}`}

	chain := &FallbackChain{
		Backends: []Backend{primary, secondary},
		Cache:    NewAvailabilityCache(time.Minute),
	}
	_, name, err := chain.Generate(context.Background(), "prompt", nil, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "secondary" {
		t.Errorf("expected secondary after primary fails availability, got %s", name)
	}
	if primary.calls != 0 {
		t.Error("expected Generate to never be called on an unavailable backend")
	}
}

func TestAvailabilityCacheReusesResultWithinTTL(t *testing.T) {
	backend := &fakeBackend{name: "primary"}
	cache := NewAvailabilityCache(time.Minute)

	_ = cache.Check(context.Background(), backend)
	_ = cache.Check(context.Background(), backend)

	if backend.availCalls != 1 {
		t.Errorf("expected a single underlying availability check within TTL, got %d", backend.availCalls)
	}
}
