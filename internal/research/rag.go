package research

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/company-updater/internal/llm"
	"github.com/jonathan/company-updater/internal/prompts"
)

// Defaults for retrieval-augmented research.
const (
	DefaultMaxSources = 3
	DefaultFetchDelay = 300 * time.Millisecond
)

// QueryKeywords are appended to the company name to find profile pages.
var QueryKeywords = []string{"company", "profile", "founded", "history", "news", "official site"}

// referenceSeparator joins reference texts in the prompt.
const referenceSeparator = "\n\n---\n\n"

// Retriever finds and reads reference pages.
type Retriever interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	ExtractText(ctx context.Context, url string) string
}

// RAGConfig configures a RAGResearcher.
type RAGConfig struct {
	MaxSources int
	FetchDelay time.Duration
	Sleep      SleepFunc
	Logger     *zap.Logger
}

// RAGResearcher grounds research in text fetched from search results.
type RAGResearcher struct {
	client     llm.Client
	retriever  Retriever
	schema     llm.ExtractionSchema
	maxSources int
	fetchDelay time.Duration
	sleep      SleepFunc
	logger     *zap.Logger
}

// NewRAGResearcher creates a retrieval-augmented researcher.
func NewRAGResearcher(client llm.Client, retriever Retriever, cfg RAGConfig) *RAGResearcher {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = DefaultMaxSources
	}
	if cfg.FetchDelay < DefaultFetchDelay {
		cfg.FetchDelay = DefaultFetchDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &RAGResearcher{
		client:     client,
		retriever:  retriever,
		schema:     llm.CompanyPartialSchema(),
		maxSources: cfg.MaxSources,
		fetchDelay: cfg.FetchDelay,
		sleep:      cfg.Sleep,
		logger:     cfg.Logger,
	}
}

// Query returns the search query used for a company.
func Query(companyName string) string {
	return companyName + " " + strings.Join(QueryKeywords, " ")
}

// Research implements Researcher.
func (r *RAGResearcher) Research(ctx context.Context, req Request) (*Result, error) {
	urls, err := r.retriever.Search(ctx, Query(req.CompanyName), r.maxSources)
	if err != nil {
		return nil, &Error{Company: req.CompanyName, Strategy: StrategyRAG, Message: "search failed", Cause: err}
	}
	if len(urls) == 0 {
		return nil, &Error{Company: req.CompanyName, Strategy: StrategyRAG, Message: "no search results"}
	}

	texts := make([]string, 0, len(urls))
	for i, url := range urls {
		if i > 0 {
			if err := r.sleep(ctx, r.fetchDelay); err != nil {
				return nil, &Error{Company: req.CompanyName, Strategy: StrategyRAG, Message: "interrupted", Cause: err}
			}
		}
		text := r.retriever.ExtractText(ctx, url)
		if strings.TrimSpace(text) == "" {
			r.logger.Debug("discarding empty reference", zap.String("url", url))
			continue
		}
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return nil, &Error{Company: req.CompanyName, Strategy: StrategyRAG, Message: "no reference text could be retrieved"}
	}

	r.logger.Debug("rag research",
		zap.String("company", req.CompanyName),
		zap.Int("sources", len(urls)),
		zap.Int("references", len(texts)))

	result, err := generate(ctx, r.client, StrategyRAG, req.CompanyName, llm.StructuredRequest{
		SystemInstruction: prompts.MustGet(promptFile, "system-rag"),
		UserMessage:       r.userMessage(req, texts),
		Schema:            r.schema,
		Mode:              llm.OutputFunctionCall,
		Tier:              llm.TierLite,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("rag research response", zap.String("company", req.CompanyName), zap.String("raw", result.Raw))
	return result, nil
}

func (r *RAGResearcher) userMessage(req Request, texts []string) string {
	var contextBlock string
	if req.IsNew {
		contextBlock = prompts.MustRender(promptFile, "rag-context-initial", map[string]string{
			"Name": req.CompanyName,
		})
	} else {
		contextBlock = prompts.MustRender(promptFile, "rag-context-incremental", map[string]string{
			"Name":          req.CompanyName,
			"Established":   orUnknown(req.Existing.Established),
			"Headquarters":  orUnknown(req.Existing.Headquarters),
			"LatestHistory": latestHistoryLine(req.Existing),
			"NotableWorks":  joinOrUnknown(req.Existing.NotableWorks),
		})
	}

	return prompts.MustRender(promptFile, "rag-user", map[string]string{
		"Context":    contextBlock,
		"References": strings.Join(texts, referenceSeparator),
		"SchemaHint": llm.BuildExtractionPrompt(r.schema, ""),
	})
}
