// Package searchclient implements the concrete SearchClient collaborator
// the Dispatcher (component B) fans out to: one HTTP fetch of a
// syndicated, RSS-shaped feed per country, parsed into SearchResults.
package searchclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"perspectivelens/internal/core"
)

// feedRSS mirrors the subset of RSS 2.0 the syndicated-news endpoint
// emits. encoding/xml already treats CDATA sections as plain character
// data, so Title/Description/etc. are tolerant of both forms without
// extra handling.
type feedRSS struct {
	XMLName xml.Name    `xml:"rss"`
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Items []feedItem `xml:"item"`
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// pubDateLayouts are the timestamp formats observed across syndicated
// feeds, tried in order.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// Client is the default SearchClient implementation, used by
// internal/dispatcher. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	// BaseURL is a template with %s placeholders filled, in order, with
	// query, country code, and language: e.g.
	// "https://news.example.com/feed?q=%s&country=%s&hl=%s".
	BaseURL string
}

// New constructs a Client. baseURL must contain three "%s" verbs for
// query, country, and language.
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{},
		BaseURL:    baseURL,
	}
}

// Search fetches and parses one country's feed. It returns at most
// maxResults items, preserving the feed's own order (treated as
// relevance-ranked). The caller is responsible for applying timeout via
// ctx; Search issues exactly one HTTP request and does not retry — retry
// and per-task timeout enforcement live in the Dispatcher.
func (c *Client) Search(ctx context.Context, query, country, language string, maxResults int) ([]core.SearchResult, error) {
	feedURL := fmt.Sprintf(c.BaseURL, url.QueryEscape(query), url.QueryEscape(country), url.QueryEscape(language))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &core.StageError{Kind: core.ErrSearchPermanent, Message: "building search request", Cause: err}
	}
	req.Header.Set("User-Agent", "PerspectiveLens/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.StageError{Kind: core.ErrSearchTransient, Message: "executing search request", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &core.StageError{Kind: core.ErrSearchTransient, Message: fmt.Sprintf("search endpoint returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, &core.StageError{Kind: core.ErrSearchPermanent, Message: fmt.Sprintf("search endpoint returned %d", resp.StatusCode)}
	}

	var feed feedRSS
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, &core.StageError{Kind: core.ErrSearchPermanent, Message: "parsing feed xml", Cause: err}
	}

	items := feed.Channel.Items
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}

	results := make([]core.SearchResult, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" || strings.TrimSpace(item.Link) == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Title:       title,
			Source:      sourceFromTitle(title),
			CountryCode: country,
			Language:    language,
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: parsePubDate(item.PubDate),
			Snippet:     strings.TrimSpace(item.Description),
		})
	}

	return results, nil
}

// sourceFromTitle extracts the publisher name syndicated feeds append
// after the last " - " separator (e.g. "Central bank raises rates -
// Example Times" -> "Example Times"), falling back to "Unknown" when no
// separator is present.
func sourceFromTitle(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx < 0 || idx+3 >= len(title) {
		return "Unknown"
	}
	source := strings.TrimSpace(title[idx+3:])
	if source == "" {
		return "Unknown"
	}
	return source
}

func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
