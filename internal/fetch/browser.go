// Package fetch - browser.go renders script-heavy pages in a headless browser.
package fetch

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the minimum extracted text length, in characters, for a
// plain HTTP fetch to count as successful. Shorter pages are re-rendered in a
// browser when the fallback is enabled.
const MinContentLength = 200

// DefaultBrowserTimeout bounds one browser render.
const DefaultBrowserTimeout = 20 * time.Second

// RenderFunc returns the rendered HTML of a page.
type RenderFunc func(ctx context.Context, url string) (string, error)

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely rendered client-side.
func ShouldUseBrowser(extractedText string) bool {
	return utf8.RuneCountInString(extractedText) < MinContentLength
}

// BrowserRenderer returns a RenderFunc backed by WithBrowser.
func BrowserRenderer(timeout time.Duration, logger *zap.Logger) RenderFunc {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		return WithBrowser(ctx, url, timeout, logger)
	}
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("starting headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to fill the page.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}
