package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PageFetcher returns the normalized text of a page.
type PageFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Retriever combines a search provider with a page fetcher.
type Retriever struct {
	searcher Searcher
	pages    PageFetcher
	logger   *zap.Logger
}

// NewRetriever creates a retriever. A nil logger discards output.
func NewRetriever(searcher Searcher, pages PageFetcher, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{searcher: searcher, pages: pages, logger: logger}
}

// Search returns at most maxResults candidate source URLs for query.
func (r *Retriever) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	links, err := r.searcher.Search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	links = cleanLinks(links, maxResults)
	r.logger.Debug("search results", zap.String("query", query), zap.Int("count", len(links)))
	return links, nil
}

// ExtractText returns bounded plain text for url. Fetch failures are logged
// and yield an empty string.
func (r *Retriever) ExtractText(ctx context.Context, url string) string {
	text, err := r.pages.Text(ctx, url)
	if err != nil {
		r.logger.Warn("reference page fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return text
}
