package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/company-updater/internal/cache"
	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/db"
	"github.com/jonathan/company-updater/internal/fetch"
	"github.com/jonathan/company-updater/internal/llm"
	"github.com/jonathan/company-updater/internal/merge"
	"github.com/jonathan/company-updater/internal/research"
	"github.com/jonathan/company-updater/internal/retrieval"
	"github.com/jonathan/company-updater/internal/store"
	"github.com/jonathan/company-updater/internal/updater"
)

// closers releases resources in reverse acquisition order.
type closers []func()

func (c *closers) add(fn func()) {
	*c = append(*c, fn)
}

func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func (a *app) stores() (*store.Records, *store.Policies) {
	return store.NewRecords(a.cfg.RecordsPath()), store.NewPolicies(a.cfg.PolicyFile())
}

// buildUpdater wires the research pipeline. The returned func releases
// backend clients and must be called when the command finishes.
func (a *app) buildUpdater(ctx context.Context) (*updater.Updater, func(), error) {
	var cl closers
	fail := func(err error) (*updater.Updater, func(), error) {
		cl.closeAll()
		return nil, nil, err
	}

	llmCfg, err := llm.ConfigFromEnv(a.lookup)
	if err != nil {
		return fail(err)
	}
	client, err := llm.NewClient(ctx, llmCfg, a.cfg.APIKey)
	if err != nil {
		return fail(fmt.Errorf("failed to create LLM client (set GEMINI_API_KEY): %w", err))
	}
	cl.add(func() { _ = client.Close() })

	selector := research.Selector{
		Direct: research.NewDirectResearcher(client, a.logger.Named("research.direct")),
	}

	retriever, err := a.buildRetriever(ctx, &cl)
	if err != nil {
		return fail(err)
	}
	if retriever != nil {
		selector.RAG = research.NewRAGResearcher(client, retriever, research.RAGConfig{
			MaxSources: a.cfg.MaxSources,
			FetchDelay: a.cfg.FetchDelay(),
			Logger:     a.logger.Named("research.rag"),
		})
	} else {
		a.logger.Info("retrieval-augmented research disabled: no search credentials configured",
			zap.String("provider", a.cfg.SearchProvider))
	}

	records, policies := a.stores()
	upd := updater.New(records, policies, selector, updater.Config{
		BatchDelay:     a.cfg.BatchDelay(),
		CompanyTimeout: a.cfg.CompanyTimeout(),
		Merge:          merge.DefaultOptions(),
		Logger:         a.logger.Named("updater"),
	})
	return upd, cl.closeAll, nil
}

// buildRetriever returns nil when the configured search provider has no credentials.
func (a *app) buildRetriever(ctx context.Context, cl *closers) (*retrieval.Retriever, error) {
	searcher, err := a.buildSearcher(ctx)
	if err != nil || searcher == nil {
		return nil, err
	}

	pageCache, err := a.buildPageCache(ctx, cl)
	if err != nil {
		return nil, err
	}

	fetcherCfg := fetch.TextFetcherConfig{
		Options: &fetch.Options{
			Timeout:   a.cfg.FetchTimeout(),
			UserAgent: fetch.DefaultUserAgent,
		},
		Mode:     fetch.Mode(a.cfg.Extractor),
		MaxChars: a.cfg.MaxChars,
		Cache:    pageCache,
		CacheTTL: a.cfg.CacheTTL(),
		Logger:   a.logger.Named("fetch"),
	}
	if a.cfg.UseBrowser {
		fetcherCfg.Render = fetch.BrowserRenderer(fetch.DefaultBrowserTimeout, a.logger.Named("browser"))
	}

	return retrieval.NewRetriever(searcher, fetch.NewTextFetcher(fetcherCfg), a.logger.Named("retrieval")), nil
}

func (a *app) buildSearcher(ctx context.Context) (retrieval.Searcher, error) {
	locale := retrieval.Locale{Country: a.cfg.Country, Language: a.cfg.Language}
	switch a.cfg.SearchProvider {
	case config.ProviderGoogle:
		if a.cfg.GoogleSearchAPIKey == "" || a.cfg.GoogleSearchCX == "" {
			return nil, nil
		}
		return retrieval.NewGoogleSearcher(ctx, a.cfg.GoogleSearchAPIKey, a.cfg.GoogleSearchCX, locale)
	case config.ProviderSerpAPI:
		if a.cfg.SerpAPIKey == "" {
			return nil, nil
		}
		return retrieval.NewSerpAPISearcher(a.cfg.SerpAPIKey, locale)
	default:
		return nil, fmt.Errorf("unknown search provider %q", a.cfg.SearchProvider)
	}
}

// buildPageCache returns nil for the "none" backend.
func (a *app) buildPageCache(ctx context.Context, cl *closers) (fetch.Cache, error) {
	switch a.cfg.CacheBackend {
	case config.CachePostgres:
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to page cache database: %w", err)
		}
		cl.add(database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare page cache schema: %w", err)
		}
		return db.NewPageCache(database), nil
	case config.CacheRedis:
		redisCache, err := cache.NewRedisPageCache(ctx, cache.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		cl.add(func() { _ = redisCache.Close() })
		return redisCache, nil
	default:
		return nil, nil
	}
}
