package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultSerpAPIEndpoint is the SerpAPI search endpoint.
const DefaultSerpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPISearcher searches Google through SerpAPI. Each request is bound to
// the caller's context, so a cancelled research run stops its searches.
type SerpAPISearcher struct {
	apiKey   string
	endpoint string
	locale   Locale
	client   *http.Client
}

// SerpAPIOption configures a SerpAPISearcher.
type SerpAPIOption func(*SerpAPISearcher)

// WithSerpAPIEndpoint overrides the search endpoint.
func WithSerpAPIEndpoint(endpoint string) SerpAPIOption {
	return func(s *SerpAPISearcher) { s.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) SerpAPIOption {
	return func(s *SerpAPISearcher) { s.client = client }
}

// NewSerpAPISearcher creates a SerpAPI client.
func NewSerpAPISearcher(apiKey string, locale Locale, opts ...SerpAPIOption) (*SerpAPISearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serpapi search requires an API key")
	}
	s := &SerpAPISearcher{
		apiKey:   apiKey,
		endpoint: DefaultSerpAPIEndpoint,
		locale:   locale,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Search returns up to maxResults organic result links. A response without
// organic results is an empty list, not an error.
func (s *SerpAPISearcher) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		return []string{}, nil
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))
	if s.locale.Country != "" {
		params.Set("gl", s.locale.Country)
	}
	if s.locale.Language != "" {
		params.Set("hl", s.locale.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &SearchError{Provider: "serpapi", Message: "failed to create request", Cause: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SearchError{Provider: "serpapi", Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &SearchError{Provider: "serpapi", Message: "failed to read response", Cause: err}
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &SearchError{
			Provider: "serpapi",
			Message:  fmt.Sprintf("invalid response (HTTP %d)", resp.StatusCode),
			Cause:    err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("HTTP status %d", resp.StatusCode)
		if parsed.Error != "" {
			msg += ": " + parsed.Error
		}
		return nil, &SearchError{Provider: "serpapi", Message: msg}
	}

	links := make([]string, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		links = append(links, r.Link)
	}
	return cleanLinks(links, maxResults), nil
}
