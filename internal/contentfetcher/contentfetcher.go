// Package contentfetcher provides the default ContentFetcher/FetchSession
// implementation used by the extractor: plain HTTP fetch plus goquery-based
// main-content extraction (spec.md §4.4, §6).
package contentfetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"perspectivelens/internal/core"
)

// mainContentSelectors mirrors the teacher's selector list, tried in order
// until one yields non-empty text.
var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content",
	".post-body", ".article-body",
	"[role='main']",
	".content", "#content",
}

var removeSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

var collapseNewlines = regexp.MustCompile(`\n{2,}`)

// Fetcher is the default ContentFetcher: it owns an *http.Client and opens
// sessions that share it.
type Fetcher struct {
	Client *http.Client
}

// New returns a Fetcher with a sane default client timeout. Per-fetch
// timeouts are still enforced via context in Fetch, so the client timeout
// here is a backstop only.
func New() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: 60 * time.Second}}
}

// OpenSession acquires a scoped FetchSession. The default implementation
// has no pooled resource to acquire beyond the shared http.Client, but the
// method exists so callers needing a heavier backend (e.g. headless
// browsing) can be swapped in behind the same interface.
func (f *Fetcher) OpenSession(ctx context.Context) (*Session, error) {
	return &Session{client: f.Client}, nil
}

// Session is a scoped fetch session. Close is idempotent and safe to call
// on every exit path.
type Session struct {
	client *http.Client
	closed bool
}

// Close releases the session. The default implementation holds no
// resources beyond the shared client, so Close only guards against
// double-use after close.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// Fetch retrieves url and extracts its main content, honoring timeout and
// ctx cancellation. It never returns an error for ordinary fetch/parse
// failures — those are reported via ExtractedContent.Success and ErrorKind,
// per spec.md §4.4 ("a timeout yields a failure record, not an exception").
func (s *Session) Fetch(ctx context.Context, url string, timeout time.Duration) core.ExtractedContent {
	start := time.Now()
	if s.closed {
		return failure(core.ErrBackendNetwork, "fetch session already closed", start)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return failure(core.ErrInvalidInput, err.Error(), start)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		kind := core.ErrBackendNetwork
		if fetchCtx.Err() == context.DeadlineExceeded {
			kind = core.ErrBackendTimeout
		}
		return failure(kind, err.Error(), start)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return failure(core.ErrBackendServer, fmt.Sprintf("status %d", resp.StatusCode), start)
	}
	if resp.StatusCode >= 400 {
		return failure(core.ErrBackendNetwork, fmt.Sprintf("status %d", resp.StatusCode), start)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(core.ErrBackendNetwork, err.Error(), start)
	}

	content, method := extractMainContent(string(body))
	excerpt := firstSentence(content)
	byline := extractByline(string(body))
	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return core.ExtractedContent{
		FinalURL: finalURL,
		Body:     content,
		Excerpt:  excerpt,
		Byline:   byline,
		Method:   method,
		Duration: time.Since(start),
		Success:  strings.TrimSpace(content) != "",
	}
}

func failure(kind core.ErrorKind, msg string, start time.Time) core.ExtractedContent {
	_ = msg
	return core.ExtractedContent{
		Method:    core.ExtractionMethodUnknown,
		Duration:  time.Since(start),
		Success:   false,
		ErrorKind: kind,
	}
}

// extractMainContent applies the teacher's selector-cascade heuristic:
// try each semantic selector in turn, falling back to the whole body.
func extractMainContent(html string) (string, core.ExtractionMethod) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", core.ExtractionMethodUnknown
	}
	doc.Find(removeSelectors).Remove()

	isAMP := doc.Find("html[amp], html[⚡]").Length() > 0 || doc.Find("link[rel='amphtml']").Length() > 0

	for _, selector := range mainContentSelectors {
		text := collectText(doc.Find(selector))
		if text != "" {
			if isAMP {
				return text, core.ExtractionMethodAMP
			}
			return text, core.ExtractionMethodHTML
		}
	}

	text := collectText(doc.Find("body"))
	if text == "" {
		return "", core.ExtractionMethodUnknown
	}
	if isAMP {
		return text, core.ExtractionMethodAMP
	}
	return text, core.ExtractionMethodHTML
}

func collectText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
		t := strings.TrimSpace(item.Text())
		if t == "" {
			return
		}
		b.WriteString(t)
		b.WriteString("\n\n")
	})
	return strings.TrimSpace(collapseNewlines.ReplaceAllString(b.String(), "\n"))
}

func extractByline(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if name, ok := doc.Find("meta[name='author']").Attr("content"); ok && name != "" {
		return strings.TrimSpace(name)
	}
	byline := doc.Find(".byline, .author, [rel='author']").First().Text()
	return strings.TrimSpace(byline)
}

func firstSentence(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	if idx := strings.IndexAny(body, ".\n"); idx > 0 && idx < 280 {
		return strings.TrimSpace(body[:idx+1])
	}
	if len(body) > 200 {
		return strings.TrimSpace(body[:200]) + "..."
	}
	return body
}
