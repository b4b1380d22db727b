package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultJWTExpirationHours applies when JWT_EXPIRATION_HOURS is unset.
const DefaultJWTExpirationHours = 24

// JWTConfig holds configuration for signing and verifying trigger tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWTConfigFromEnv reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS
// (default 24) through lookup.
func JWTConfigFromEnv(lookup LookupFunc) (*JWTConfig, error) {
	secret, _ := lookup("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	hours := DefaultJWTExpirationHours
	if raw, ok := lookup("JWT_EXPIRATION_HOURS"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		hours = n
	}

	cfg := &JWTConfig{Secret: secret, ExpirationHours: hours}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OptionalJWTConfig returns nil without error when JWT_SECRET is unset,
// meaning trigger routes run unauthenticated.
func OptionalJWTConfig(lookup LookupFunc) (*JWTConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if secret, _ := lookup("JWT_SECRET"); secret == "" {
		return nil, nil
	}
	return JWTConfigFromEnv(lookup)
}

// Expiration returns the token lifetime.
func (c *JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
