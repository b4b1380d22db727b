package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// OutputMode selects how a structured response is requested from the model.
type OutputMode string

const (
	// OutputJSON asks for a JSON object body constrained by a response schema.
	OutputJSON OutputMode = "json"
	// OutputFunctionCall forces a single function call whose arguments follow the schema.
	OutputFunctionCall OutputMode = "function_call"
)

// StructuredRequest is one schema-constrained generation request.
type StructuredRequest struct {
	SystemInstruction string
	UserMessage       string
	Schema            ExtractionSchema
	Mode              OutputMode
	Tier              ModelTier
}

// StructuredResponse carries whichever payload the model produced.
// At most one of JSON and FunctionArgs is set.
type StructuredResponse struct {
	JSON         string
	FunctionArgs string
}

// Payload returns the structured payload, preferring a direct JSON body.
func (r *StructuredResponse) Payload() (string, bool) {
	if r == nil {
		return "", false
	}
	if s := strings.TrimSpace(r.JSON); s != "" {
		return s, true
	}
	if s := strings.TrimSpace(r.FunctionArgs); s != "" {
		return s, true
	}
	return "", false
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates text content using the specified model tier
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateStructured generates schema-constrained output
	GenerateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

func (c *GeminiClient) model(tier ModelTier) (*genai.GenerativeModel, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}
	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature) // Low temperature for factual output
	return model, nil
}

// GenerateContent generates text content using the specified model tier
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model, err := c.model(tier)
	if err != nil {
		return "", err
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// GenerateStructured sends a system instruction and user message and returns the structured payload.
// In JSON mode the body is constrained by the response schema; in function-call mode the model
// must call the schema's function and its arguments are re-encoded as a JSON string.
func (c *GeminiClient) GenerateStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	model, err := c.model(req.Tier)
	if err != nil {
		return nil, err
	}
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}

	switch req.Mode {
	case OutputFunctionCall:
		model.Tools = []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{req.Schema.FunctionDeclaration()}}}
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingAny,
				AllowedFunctionNames: []string{req.Schema.Name},
			},
		}
	default:
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.Schema.GenaiSchema()
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if req.Mode == OutputFunctionCall {
		args, err := extractFunctionArgs(resp, req.Schema.Name)
		if err != nil {
			return nil, err
		}
		return &StructuredResponse{FunctionArgs: args}, nil
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}
	return &StructuredResponse{JSON: CleanJSONBlock(text)}, nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// extractFunctionArgs returns the JSON-encoded arguments of the named function call.
func extractFunctionArgs(resp *genai.GenerateContentResponse, name string) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("no content in response")
	}

	for _, part := range candidate.Content.Parts {
		call, ok := part.(genai.FunctionCall)
		if !ok || call.Name != name {
			continue
		}
		if len(call.Args) == 0 {
			return "", fmt.Errorf("function call %s returned no arguments", name)
		}
		data, err := json.Marshal(call.Args)
		if err != nil {
			return "", fmt.Errorf("failed to encode function arguments: %w", err)
		}
		return string(data), nil
	}

	return "", fmt.Errorf("no function call to %s in response", name)
}
