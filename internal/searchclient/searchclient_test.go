package searchclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"perspectivelens/internal/core"
)

const sampleFeed = `<?xml version="1.0"?>
<rss><channel>
<item>
  <title><![CDATA[Central bank raises rates - Example Times]]></title>
  <link>https://example.com/a</link>
  <description><![CDATA[Rates rise amid inflation concerns.]]></description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
</item>
<item>
  <title>Second story with no source suffix</title>
  <link>https://example.com/b</link>
  <description>plain text description</description>
  <pubDate></pubDate>
</item>
<item>
  <title></title>
  <link>https://example.com/c</link>
</item>
</channel></rss>`

func TestSearchParsesCDATAAndPlainFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := New(srv.URL + "?q=%s&country=%s&hl=%s")
	results, err := c.Search(context.Background(), "rates", "US", "en", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The third item has an empty title and must be skipped.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Source != "Example Times" {
		t.Errorf("Source = %q, want %q", results[0].Source, "Example Times")
	}
	if results[0].Snippet != "Rates rise amid inflation concerns." {
		t.Errorf("Snippet = %q", results[0].Snippet)
	}
	if results[0].PublishedAt.IsZero() {
		t.Error("expected PublishedAt to be parsed")
	}

	if results[1].Source != "Unknown" {
		t.Errorf("Source = %q, want Unknown for no ' - ' suffix", results[1].Source)
	}
}

func TestSearchRespectsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := New(srv.URL + "?q=%s&country=%s&hl=%s")
	results, err := c.Search(context.Background(), "rates", "US", "en", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchClassifiesServerErrorAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL + "?q=%s&country=%s&hl=%s")
	_, err := c.Search(context.Background(), "rates", "US", "en", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if se, ok := err.(*core.StageError); !ok || se.Kind != core.ErrSearchTransient {
		t.Errorf("expected ErrSearchTransient, got %v", err)
	}
}

func TestSearchClassifiesClientErrorAsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL + "?q=%s&country=%s&hl=%s")
	_, err := c.Search(context.Background(), "rates", "US", "en", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if se, ok := err.(*core.StageError); !ok || se.Kind != core.ErrSearchPermanent {
		t.Errorf("expected ErrSearchPermanent, got %v", err)
	}
}

func TestSourceFromTitle(t *testing.T) {
	cases := []struct{ title, want string }{
		{"Central bank raises rates - Example Times", "Example Times"},
		{"No separator here", "Unknown"},
		{"Trailing separator - ", "Unknown"},
	}
	for _, c := range cases {
		if got := sourceFromTitle(c.title); got != c.want {
			t.Errorf("sourceFromTitle(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}
