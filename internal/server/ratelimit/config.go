package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one method and path.
type EndpointConfig struct {
	Path   string        // Exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // Requests per Window; <= 0 means unlimited
	Window time.Duration // Refill window
	Burst  int           // Bucket capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig reads rate limiting configuration from the environment.
func LoadConfig() *Config {
	return LoadConfigFrom(os.LookupEnv)
}

// LoadConfigFrom is LoadConfig with an injectable lookup.
func LoadConfigFrom(lookup func(string) (string, bool)) *Config {
	env := envReader(lookup)
	cfg := DefaultConfig()

	cfg.Enabled = env.boolean("RATE_LIMIT_ENABLED", true)
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}
	cfg.DefaultLimit = env.integer("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = env.dur("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = env.dur("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(env.str("RATE_LIMIT_WHITELIST", ""))
	cfg.Blacklist = parseIPList(env.str("RATE_LIMIT_BLACKLIST", ""))
	return cfg
}

// DefaultEndpointConfigs limits the research triggers, which each cost
// generative backend calls.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/api/companies/update-all", Method: "POST", Limit: 6, Window: time.Hour, Burst: 1},
		{Path: "/api/companies/update-all", Method: "GET", Limit: 6, Window: time.Hour, Burst: 1},
		{Path: "/api/companies/update", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/health", Method: "GET", Limit: 0},
	}
}

type envReader func(string) (string, bool)

func (e envReader) str(key, def string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return def
}

func (e envReader) integer(key string, def int) int {
	if n, err := strconv.Atoi(e.str(key, "")); err == nil {
		return n
	}
	return def
}

func (e envReader) boolean(key string, def bool) bool {
	if b, err := strconv.ParseBool(e.str(key, "")); err == nil {
		return b
	}
	return def
}

func (e envReader) dur(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.str(key, "")); err == nil {
		return d
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
