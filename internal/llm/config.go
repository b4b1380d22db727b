// Package llm wraps the generative backend used for company research.
// Callers pick a model tier; Config maps tiers to provider models.
package llm

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// ModelTier names the capability a research call needs.
type ModelTier string

const (
	// TierLite extracts structured fields from scraped reference text.
	TierLite ModelTier = "lite"
	// TierStandard refreshes companies that already have a record.
	TierStandard ModelTier = "standard"
	// TierAdvanced bootstraps newly registered companies.
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
	}
}

// tierEnv maps each tier to the variable overriding its model.
var tierEnv = map[ModelTier]string{
	TierLite:     "GEMINI_MODEL_LITE",
	TierStandard: "GEMINI_MODEL_STANDARD",
	TierAdvanced: "GEMINI_MODEL_ADVANCED",
}

// ConfigFromEnv returns DefaultConfig with per-tier model names and the
// temperature overridden from lookup. Blank values are ignored.
func ConfigFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	for tier, key := range tierEnv {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			cfg.Models[tier] = strings.TrimSpace(v)
		}
	}
	if raw, ok := lookup("GEMINI_TEMPERATURE"); ok && strings.TrimSpace(raw) != "" {
		t, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid GEMINI_TEMPERATURE: %w", err)
		}
		cfg.Temperature = float32(t)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects temperatures outside [0, 2] and configs without models.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.GetModel(TierStandard) == "" {
		return fmt.Errorf("no model configured for provider %q", c.Provider)
	}
	return nil
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	return c.Models[TierLite]
}

// WithModel returns a copy of c using model for tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:    c.Provider,
		Models:      maps.Clone(c.Models),
		Temperature: c.Temperature,
	}
	if out.Models == nil {
		out.Models = make(map[ModelTier]string)
	}
	out.Models[tier] = model
	return out
}
