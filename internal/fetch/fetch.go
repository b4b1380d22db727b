// Package fetch provides URL fetching and HTML-to-text processing for
// reference pages used by retrieval-augmented research.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 5 * time.Second

// DefaultMaxChars is the maximum number of characters kept from a page.
const DefaultMaxChars = 2000

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CompanyUpdater/1.0)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 5 << 20

// Mode selects how visible text is pulled out of a page.
type Mode string

const (
	// ModeBody takes the whole visible body text.
	ModeBody Mode = "body"
	// ModeReadability extracts the main article with go-readability.
	ModeReadability Mode = "readability"
)

// Result holds the raw and processed content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	Text        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Client overrides the HTTP client; Timeout still applies through the request context.
	Client *http.Client
}

// DefaultOptions returns the defaults for fetching reference pages.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves HTML content from a URL. Any non-2xx status is an error;
// the partial result is still returned so callers can record the status.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}

// ExtractBodyText parses HTML and returns the visible body text with
// script, style and noscript content removed and whitespace collapsed.
func ExtractBodyText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	return collapseWhitespace(doc.Find("body").Text()), nil
}

// ExtractReadableText returns the main article text of a page using
// go-readability, with whitespace collapsed.
func ExtractReadableText(html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}

	return collapseWhitespace(article.TextContent), nil
}

// Extract pulls text out of html according to mode. Readability mode falls
// back to whole-body text when no article can be found.
func Extract(mode Mode, html, pageURL string) (string, error) {
	if mode == ModeReadability {
		text, err := ExtractReadableText(html, pageURL)
		if err == nil && text != "" {
			return text, nil
		}
	}
	return ExtractBodyText(html)
}

// Truncate keeps at most maxChars characters of text. A non-positive
// maxChars disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// collapseWhitespace replaces every run of whitespace with a single space.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
