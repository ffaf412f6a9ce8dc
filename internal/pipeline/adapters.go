package pipeline

import (
	"context"

	"perspectivelens/internal/contentfetcher"
	"perspectivelens/internal/extractor"
)

// fetcherAdapter wraps internal/contentfetcher.Fetcher so its concrete
// *Session return type satisfies extractor.ContentFetcher, whose
// OpenSession returns the narrower extractor.Session interface. Go
// requires an exact method signature match for interface satisfaction,
// so the concrete fetcher cannot implement extractor.ContentFetcher
// directly.
type fetcherAdapter struct {
	fetcher *contentfetcher.Fetcher
}

// NewContentFetcher adapts a contentfetcher.Fetcher into the
// extractor.ContentFetcher interface the pipeline depends on.
func NewContentFetcher(f *contentfetcher.Fetcher) extractor.ContentFetcher {
	return fetcherAdapter{fetcher: f}
}

func (a fetcherAdapter) OpenSession(ctx context.Context) (extractor.Session, error) {
	return a.fetcher.OpenSession(ctx)
}
