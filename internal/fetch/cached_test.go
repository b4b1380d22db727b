package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	pages  map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{pages: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, url string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	text, ok := c.pages[url]
	return text, ok, nil
}

func (c *memoryCache) Put(_ context.Context, url, text string, ttl time.Duration) error {
	c.pages[url] = text
	c.ttls[url] = ttl
	return nil
}

type trackingCache struct {
	*memoryCache
	skip     map[string]string
	failures map[string]int
}

func (c *trackingCache) ShouldSkip(_ context.Context, url string) (bool, string, error) {
	reason, ok := c.skip[url]
	return ok, reason, nil
}

func (c *trackingCache) RecordFailure(_ context.Context, url string, status int, _ string) error {
	c.failures[url] = status
	return nil
}

func pageServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTextFetcher_TruncatesAndCaches(t *testing.T) {
	var hits int32
	server := pageServer(t, "<html><body><p>"+strings.Repeat("x", 50)+"</p></body></html>", &hits)
	cache := newMemoryCache()
	f := NewTextFetcher(TextFetcherConfig{MaxChars: 10, Cache: cache, CacheTTL: time.Hour})

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 10), text)
	assert.Equal(t, text, cache.pages[server.URL])
	assert.Equal(t, time.Hour, cache.ttls[server.URL])

	again, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call is served from cache")
}

func TestTextFetcher_DefaultMaxChars(t *testing.T) {
	server := pageServer(t, "<body>"+strings.Repeat("あ", DefaultMaxChars+100)+"</body>", nil)

	text, err := NewTextFetcher(TextFetcherConfig{}).Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxChars, len([]rune(text)))
}

func TestTextFetcher_CacheErrorFallsThrough(t *testing.T) {
	server := pageServer(t, "<body>live text</body>", nil)
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")

	text, err := NewTextFetcher(TextFetcherConfig{Cache: cache}).Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "live text", text)
}

func TestTextFetcher_EmptyTextNotCached(t *testing.T) {
	server := pageServer(t, "<body><script>app()</script></body>", nil)
	cache := newMemoryCache()

	text, err := NewTextFetcher(TextFetcherConfig{Cache: cache}).Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.NotContains(t, cache.pages, server.URL)
}

func TestTextFetcher_RecordsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	cache := &trackingCache{memoryCache: newMemoryCache(), skip: map[string]string{}, failures: map[string]int{}}
	_, err := NewTextFetcher(TextFetcherConfig{Cache: cache}).Text(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, http.StatusGone, cache.failures[server.URL])
}

func TestTextFetcher_SkipsKnownBadURL(t *testing.T) {
	var hits int32
	server := pageServer(t, "<body>never read</body>", &hits)
	cache := &trackingCache{
		memoryCache: newMemoryCache(),
		skip:        map[string]string{server.URL: "permanent failure"},
		failures:    map[string]int{},
	}

	_, err := NewTextFetcher(TextFetcherConfig{Cache: cache}).Text(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL skipped")
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestTextFetcher_BrowserFallback(t *testing.T) {
	server := pageServer(t, `<body><div id="app">Loading</div></body>`, nil)
	rendered := "<body><main>" + strings.Repeat("Rendered company profile. ", 20) + "</main></body>"

	var renders int32
	f := NewTextFetcher(TextFetcherConfig{
		Render: func(_ context.Context, url string) (string, error) {
			atomic.AddInt32(&renders, 1)
			assert.Equal(t, server.URL, url)
			return rendered, nil
		},
	})

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Rendered company profile.")
	assert.Equal(t, int32(1), atomic.LoadInt32(&renders))
}

func TestTextFetcher_BrowserFailureKeepsPlainText(t *testing.T) {
	server := pageServer(t, `<body>Loading</body>`, nil)
	f := NewTextFetcher(TextFetcherConfig{
		Render: func(context.Context, string) (string, error) {
			return "", errors.New("chrome not installed")
		},
	})

	text, err := f.Text(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Loading", text)
}
