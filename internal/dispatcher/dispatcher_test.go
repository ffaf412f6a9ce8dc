package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"perspectivelens/internal/core"
)

type fakeClient struct {
	byCountry map[string][]core.SearchResult
	errCount  map[string]int
	calls     map[string]int
}

func (f *fakeClient) Search(ctx context.Context, query, country, language string, maxResults int) ([]core.SearchResult, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[country]++
	if n := f.errCount[country]; n > 0 && f.calls[country] <= n {
		return nil, &core.StageError{Kind: core.ErrSearchTransient, Message: "simulated failure"}
	}
	results := f.byCountry[country]
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func countries() []core.CountrySpec {
	return []core.CountrySpec{
		{Code: "US", Name: "United States", SearchLanguage: "en"},
		{Code: "BR", Name: "Brazil", SearchLanguage: "pt"},
	}
}

func TestDispatchCombinesAllCountries(t *testing.T) {
	client := &fakeClient{byCountry: map[string][]core.SearchResult{
		"US": {{Title: "US story", URL: "https://a.com/1"}, {Title: "US story 2", URL: "https://a.com/2"}},
		"BR": {{Title: "BR story", URL: "https://b.com/1"}},
	}}
	d := New(client, time.Second, 2)
	results, err := d.Dispatch(context.Background(), core.QueryPlan{SearchText: "rates"}, core.SelectionTargets{
		PerCountry:       map[string]int{"US": 2, "BR": 2},
		BufferPerCountry: 1,
	}, countries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 combined results, got %d", len(results))
	}
}

func TestDispatchSkipsZeroRequestedCountry(t *testing.T) {
	client := &fakeClient{byCountry: map[string][]core.SearchResult{
		"US": {{Title: "US story", URL: "https://a.com/1"}},
		"BR": {{Title: "BR story", URL: "https://b.com/1"}},
	}}
	d := New(client, time.Second, 2)
	_, err := d.Dispatch(context.Background(), core.QueryPlan{SearchText: "rates"}, core.SelectionTargets{
		PerCountry: map[string]int{"US": 1, "BR": 0},
	}, countries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls["BR"] != 0 {
		t.Errorf("expected BR to be skipped, got %d calls", client.calls["BR"])
	}
}

func TestDispatchFailsOnlyWhenEveryCountryEmpty(t *testing.T) {
	client := &fakeClient{byCountry: map[string][]core.SearchResult{}}
	d := New(client, time.Second, 1)
	_, err := d.Dispatch(context.Background(), core.QueryPlan{SearchText: "rates"}, core.SelectionTargets{
		PerCountry: map[string]int{"US": 1, "BR": 1},
	}, countries())
	if err == nil {
		t.Fatal("expected NoSearchResults error")
	}
	var pe *core.PipelineError
	if !errors.As(err, &pe) || pe.Kind != core.ErrNoSearchResults {
		t.Fatalf("expected ErrNoSearchResults, got %v", err)
	}
}

func TestDispatchToleratesPartialFailure(t *testing.T) {
	client := &fakeClient{
		byCountry: map[string][]core.SearchResult{
			"BR": {{Title: "BR story", URL: "https://b.com/1"}},
		},
		errCount: map[string]int{"US": 99},
	}
	d := New(client, time.Second, 1)
	results, err := d.Dispatch(context.Background(), core.QueryPlan{SearchText: "rates"}, core.SelectionTargets{
		PerCountry: map[string]int{"US": 1, "BR": 1},
	}, countries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result from BR, got %d", len(results))
	}
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{
		byCountry: map[string][]core.SearchResult{
			"US": {{Title: "US story", URL: "https://a.com/1"}},
		},
		errCount: map[string]int{"US": 1},
	}
	d := New(client, time.Second, 2)
	results, err := d.Dispatch(context.Background(), core.QueryPlan{SearchText: "rates"}, core.SelectionTargets{
		PerCountry: map[string]int{"US": 1},
	}, countries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected retry to recover 1 result, got %d", len(results))
	}
	if client.calls["US"] != 2 {
		t.Errorf("expected 2 calls (1 failure + 1 retry), got %d", client.calls["US"])
	}
}
