// Package fetch - cached.go turns a URL into bounded page text, with an
// optional page cache and browser fallback.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL is how long extracted page text stays cached.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache stores extracted page text by URL.
type Cache interface {
	// Get returns the cached text for url and whether a fresh entry existed.
	Get(ctx context.Context, url string) (string, bool, error)
	// Put stores text for url for ttl.
	Put(ctx context.Context, url, text string, ttl time.Duration) error
}

// FailureTracker is implemented by caches that remember failed fetches so
// permanently broken URLs are not retried on every run.
type FailureTracker interface {
	ShouldSkip(ctx context.Context, url string) (bool, string, error)
	RecordFailure(ctx context.Context, url string, status int, message string) error
}

// TextFetcherConfig holds configuration for the text fetcher.
type TextFetcherConfig struct {
	Options  *Options
	Mode     Mode
	MaxChars int
	Cache    Cache
	CacheTTL time.Duration
	// Render enables the browser fallback for thin pages when set.
	Render RenderFunc
	Logger *zap.Logger
}

// TextFetcher fetches a page and returns its normalized, truncated text.
type TextFetcher struct {
	options  *Options
	mode     Mode
	maxChars int
	cache    Cache
	cacheTTL time.Duration
	render   RenderFunc
	logger   *zap.Logger
}

// NewTextFetcher creates a text fetcher, filling unset fields with defaults.
func NewTextFetcher(cfg TextFetcherConfig) *TextFetcher {
	if cfg.Options == nil {
		cfg.Options = DefaultOptions()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBody
	}
	if cfg.MaxChars == 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &TextFetcher{
		options:  cfg.Options,
		mode:     cfg.Mode,
		maxChars: cfg.MaxChars,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		render:   cfg.Render,
		logger:   cfg.Logger,
	}
}

// Text returns the extracted text of urlStr. Cache failures are logged and
// never fail the fetch.
func (f *TextFetcher) Text(ctx context.Context, urlStr string) (string, error) {
	tracker, _ := f.cache.(FailureTracker)

	if tracker != nil {
		skip, reason, err := tracker.ShouldSkip(ctx, urlStr)
		if err != nil {
			f.logger.Warn("failed to check skip status", zap.String("url", urlStr), zap.Error(err))
		} else if skip {
			return "", &Error{URL: urlStr, Message: fmt.Sprintf("URL skipped: %s", reason)}
		}
	}

	if f.cache != nil {
		text, ok, err := f.cache.Get(ctx, urlStr)
		switch {
		case err != nil:
			f.logger.Warn("page cache lookup failed", zap.String("url", urlStr), zap.Error(err))
		case ok:
			f.logger.Debug("page cache hit", zap.String("url", urlStr))
			return text, nil
		}
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		if tracker != nil {
			status := 0
			if result != nil {
				status = result.StatusCode
			}
			if recErr := tracker.RecordFailure(ctx, urlStr, status, err.Error()); recErr != nil {
				f.logger.Warn("failed to record fetch failure", zap.String("url", urlStr), zap.Error(recErr))
			}
		}
		return "", err
	}

	text, err := Extract(f.mode, result.HTML, urlStr)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}

	if f.render != nil && ShouldUseBrowser(text) {
		if rendered, ok := f.renderText(ctx, urlStr); ok && len(rendered) > len(text) {
			text = rendered
		}
	}

	text = Truncate(text, f.maxChars)

	if f.cache != nil && strings.TrimSpace(text) != "" {
		if err := f.cache.Put(ctx, urlStr, text, f.cacheTTL); err != nil {
			f.logger.Warn("page cache store failed", zap.String("url", urlStr), zap.Error(err))
		}
	}

	return text, nil
}

// renderText re-fetches a thin page through the browser. It reports false
// when rendering fails or yields nothing.
func (f *TextFetcher) renderText(ctx context.Context, urlStr string) (string, bool) {
	html, err := f.render(ctx, urlStr)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			f.logger.Warn("browser fallback failed", zap.String("url", urlStr), zap.Error(err))
		}
		return "", false
	}
	text, err := Extract(f.mode, html, urlStr)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}
