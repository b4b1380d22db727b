package research

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/company-updater/internal/llm"
	"github.com/jonathan/company-updater/internal/prompts"
)

const promptFile = "research.json"

// NamePlaceholder is replaced with the company name in prompt templates.
const NamePlaceholder = "{{name}}"

// DirectResearcher asks the backend about a company from its own knowledge.
type DirectResearcher struct {
	client llm.Client
	schema llm.ExtractionSchema
	logger *zap.Logger
}

// NewDirectResearcher creates a direct-prompt researcher.
func NewDirectResearcher(client llm.Client, logger *zap.Logger) *DirectResearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectResearcher{client: client, schema: llm.CompanyPartialSchema(), logger: logger}
}

// Research implements Researcher.
func (d *DirectResearcher) Research(ctx context.Context, req Request) (*Result, error) {
	tier := llm.TierStandard
	if req.IsNew {
		tier = llm.TierAdvanced
	}

	d.logger.Debug("direct research",
		zap.String("company", req.CompanyName),
		zap.Bool("new", req.IsNew),
		zap.String("model", d.client.GetModel(tier)))

	result, err := generate(ctx, d.client, StrategyDirect, req.CompanyName, llm.StructuredRequest{
		SystemInstruction: prompts.MustGet(promptFile, "system-direct"),
		UserMessage:       d.userMessage(req),
		Schema:            d.schema,
		Mode:              llm.OutputJSON,
		Tier:              tier,
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug("direct research response", zap.String("company", req.CompanyName), zap.String("raw", result.Raw))
	return result, nil
}

func (d *DirectResearcher) userMessage(req Request) string {
	return RenderTemplate(req.PromptTemplate, req.CompanyName) + "\n\n" + d.contextBlock(req)
}

func (d *DirectResearcher) contextBlock(req Request) string {
	hint := llm.BuildExtractionPrompt(d.schema, "")
	if req.IsNew {
		return prompts.MustRender(promptFile, "context-initial", map[string]string{
			"Name":       req.CompanyName,
			"SchemaHint": hint,
		})
	}
	return prompts.MustRender(promptFile, "context-incremental", map[string]string{
		"Established":   orUnknown(req.Existing.Established),
		"Headquarters":  orUnknown(req.Existing.Headquarters),
		"NotableWorks":  joinOrUnknown(req.Existing.NotableWorks),
		"LatestHistory": latestHistoryLine(req.Existing),
		"SchemaHint":    hint,
	})
}

// RenderTemplate substitutes the company name into a research prompt
// template, falling back to the built-in template when it is blank.
func RenderTemplate(template, companyName string) string {
	if strings.TrimSpace(template) == "" {
		template = prompts.MustGet(promptFile, "default-template")
	}
	return strings.ReplaceAll(template, NamePlaceholder, companyName)
}
