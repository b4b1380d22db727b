// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Search providers.
const (
	ProviderGoogle  = "google"
	ProviderSerpAPI = "serpapi"
)

// Page cache backends.
const (
	CacheNone     = "none"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Text extractor modes.
const (
	ExtractorBody        = "body"
	ExtractorReadability = "readability"
)

// Config represents the updater configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use Defaults or environment variables.
type Config struct {
	// Paths
	DataDir    string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`       // Root data directory
	RecordsDir string `json:"records_dir,omitempty" yaml:"records_dir,omitempty"` // Company record directory (default: <data_dir>/companies)
	PolicyPath string `json:"policy_path,omitempty" yaml:"policy_path,omitempty"` // Update policy file (default: <data_dir>/update-config.json)

	// Generative backend
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key

	// Search
	SearchProvider     string `json:"search_provider,omitempty" yaml:"search_provider,omitempty" validate:"omitempty,oneof=google serpapi"`
	GoogleSearchAPIKey string `json:"google_search_api_key,omitempty" yaml:"google_search_api_key,omitempty"`
	GoogleSearchCX     string `json:"google_search_cx,omitempty" yaml:"google_search_cx,omitempty"`
	SerpAPIKey         string `json:"serpapi_api_key,omitempty" yaml:"serpapi_api_key,omitempty"`
	Country            string `json:"country,omitempty" yaml:"country,omitempty"`   // gl
	Language           string `json:"language,omitempty" yaml:"language,omitempty"` // hl
	MaxSources         int    `json:"max_sources,omitempty" yaml:"max_sources,omitempty" validate:"gte=0,lte=10"`

	// Fetching
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds,omitempty" yaml:"fetch_timeout_seconds,omitempty" validate:"gte=0"`
	FetchDelayMS        int    `json:"fetch_delay_ms,omitempty" yaml:"fetch_delay_ms,omitempty" validate:"gte=0"`
	MaxChars            int    `json:"max_chars,omitempty" yaml:"max_chars,omitempty" validate:"gte=0"`
	Extractor           string `json:"extractor,omitempty" yaml:"extractor,omitempty" validate:"omitempty,oneof=body readability"`
	UseBrowser          bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Headless browser fallback for thin pages

	// Page cache
	CacheBackend  string `json:"cache_backend,omitempty" yaml:"cache_backend,omitempty" validate:"omitempty,oneof=none postgres redis"`
	CacheTTLHours int    `json:"cache_ttl_hours,omitempty" yaml:"cache_ttl_hours,omitempty" validate:"gte=0"`
	DatabaseURL   string `json:"database_url,omitempty" yaml:"database_url,omitempty" validate:"required_if=CacheBackend postgres"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" validate:"required_if=CacheBackend redis"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty" validate:"gte=0"`

	// Scheduling
	BatchDelayMS          int `json:"batch_delay_ms,omitempty" yaml:"batch_delay_ms,omitempty" validate:"gte=0"`
	CompanyTimeoutSeconds int `json:"company_timeout_seconds,omitempty" yaml:"company_timeout_seconds,omitempty" validate:"gte=0"`

	// Server
	Port int `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`

	// Behavior
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:             "data",
		SearchProvider:      ProviderSerpAPI,
		Country:             "jp",
		Language:            "ja",
		MaxSources:          3,
		FetchTimeoutSeconds: 5,
		FetchDelayMS:        300,
		MaxChars:            2000,
		Extractor:           ExtractorBody,
		CacheBackend:        CacheNone,
		CacheTTLHours:       7 * 24,
		BatchDelayMS:        1000,
		Port:                8080,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are skipped; variables already set are not overwritten.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables that are set and non-empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	stringVars := map[string]*string{
		"GEMINI_API_KEY":        &c.APIKey,
		"SEARCH_PROVIDER":       &c.SearchProvider,
		"GOOGLE_SEARCH_API_KEY": &c.GoogleSearchAPIKey,
		"GOOGLE_SEARCH_CX":      &c.GoogleSearchCX,
		"SERPAPI_API_KEY":       &c.SerpAPIKey,
		"DATABASE_URL":          &c.DatabaseURL,
		"REDIS_ADDR":            &c.RedisAddr,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"PAGE_CACHE":            &c.CacheBackend,
		"COMPANY_DATA_DIR":      &c.DataDir,
	}
	for key, dst := range stringVars {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"REDIS_DB": &c.RedisDB,
		"PORT":     &c.Port,
	}
	for key, dst := range intVars {
		v, ok := get(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: field %s failed %q validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty string and zero numeric fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fillString(&result.DataDir, defaults.DataDir)
	fillString(&result.RecordsDir, defaults.RecordsDir)
	fillString(&result.PolicyPath, defaults.PolicyPath)
	fillString(&result.APIKey, defaults.APIKey)
	fillString(&result.SearchProvider, defaults.SearchProvider)
	fillString(&result.GoogleSearchAPIKey, defaults.GoogleSearchAPIKey)
	fillString(&result.GoogleSearchCX, defaults.GoogleSearchCX)
	fillString(&result.SerpAPIKey, defaults.SerpAPIKey)
	fillString(&result.Country, defaults.Country)
	fillString(&result.Language, defaults.Language)
	fillString(&result.Extractor, defaults.Extractor)
	fillString(&result.CacheBackend, defaults.CacheBackend)
	fillString(&result.DatabaseURL, defaults.DatabaseURL)
	fillString(&result.RedisAddr, defaults.RedisAddr)
	fillString(&result.RedisPassword, defaults.RedisPassword)

	// Int fields: use default if zero
	fillInt(&result.MaxSources, defaults.MaxSources)
	fillInt(&result.FetchTimeoutSeconds, defaults.FetchTimeoutSeconds)
	fillInt(&result.FetchDelayMS, defaults.FetchDelayMS)
	fillInt(&result.MaxChars, defaults.MaxChars)
	fillInt(&result.CacheTTLHours, defaults.CacheTTLHours)
	fillInt(&result.RedisDB, defaults.RedisDB)
	fillInt(&result.BatchDelayMS, defaults.BatchDelayMS)
	fillInt(&result.CompanyTimeoutSeconds, defaults.CompanyTimeoutSeconds)
	fillInt(&result.Port, defaults.Port)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Load builds the effective configuration: defaults, then the optional file, then environment.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// RecordsPath returns the company record directory.
func (c *Config) RecordsPath() string {
	if c.RecordsDir != "" {
		return c.RecordsDir
	}
	return filepath.Join(c.DataDir, "companies")
}

// PolicyFile returns the update policy document path.
func (c *Config) PolicyFile() string {
	if c.PolicyPath != "" {
		return c.PolicyPath
	}
	return filepath.Join(c.DataDir, "update-config.json")
}

// FetchTimeout returns the per-page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// FetchDelay returns the pause between page fetches.
func (c *Config) FetchDelay() time.Duration {
	return time.Duration(c.FetchDelayMS) * time.Millisecond
}

// BatchDelay returns the pause between companies in a batch.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// CompanyTimeout returns the per-company run limit, zero when disabled.
func (c *Config) CompanyTimeout() time.Duration {
	return time.Duration(c.CompanyTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached page text stays fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func fillInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
