// Package retrieval finds candidate reference pages for a company and turns
// them into bounded plain text.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Default locale hints sent to search providers.
const (
	DefaultCountry  = "jp"
	DefaultLanguage = "ja"
)

// googleMaxResults is the largest page size Custom Search accepts.
const googleMaxResults = 10

// Searcher returns provider-ranked result URLs for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Locale carries country and interface-language hints for search.
type Locale struct {
	Country  string
	Language string
}

// DefaultLocale returns the Japanese locale used for game company research.
func DefaultLocale() Locale {
	return Locale{Country: DefaultCountry, Language: DefaultLanguage}
}

// SearchError represents a failed search request.
type SearchError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *SearchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s search: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s search: %s", e.Provider, e.Message)
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

// GoogleSearcher searches with the Google Custom Search JSON API.
type GoogleSearcher struct {
	svc    *customsearch.Service
	cx     string
	locale Locale
}

// NewGoogleSearcher creates a Custom Search client for the engine cx.
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, locale Locale, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and a search engine ID")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx, locale: locale}, nil
}

// Search returns up to maxResults result links.
func (g *GoogleSearcher) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		return []string{}, nil
	}
	num := maxResults
	if num > googleMaxResults {
		num = googleMaxResults
	}

	call := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num))
	if g.locale.Country != "" {
		call = call.Gl(g.locale.Country)
	}
	if g.locale.Language != "" {
		call = call.Hl(g.locale.Language)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, &SearchError{Provider: "google", Message: "request failed", Cause: err}
	}

	links := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		links = append(links, item.Link)
	}
	return cleanLinks(links, maxResults), nil
}

// cleanLinks drops blank and repeated links and caps the list at max,
// keeping provider order.
func cleanLinks(links []string, max int) []string {
	out := make([]string, 0, len(links))
	if max <= 0 {
		return out
	}
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		out = append(out, link)
		if len(out) == max {
			break
		}
	}
	return out
}
