package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestJWTConfigFromEnv_DefaultValues(t *testing.T) {
	cfg, err := JWTConfigFromEnv(envMap(map[string]string{
		"JWT_SECRET":           "test-secret-key",
		"JWT_EXPIRATION_HOURS": "",
	}))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "test-secret-key", cfg.Secret)
	assert.Equal(t, 24, cfg.ExpirationHours, "should use default expiration of 24 hours")
	assert.Equal(t, 24*time.Hour, cfg.Expiration())
}

func TestJWTConfigFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantHours int
		wantErr   string
	}{
		{name: "custom expiration", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "48"}, wantHours: 48},
		{name: "missing secret", env: map[string]string{}, wantErr: "JWT_SECRET"},
		{name: "non-numeric expiration", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "soon"}, wantErr: "JWT_EXPIRATION_HOURS"},
		{name: "zero expiration", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "0"}, wantErr: "at least 1 hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := JWTConfigFromEnv(envMap(tt.env))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHours, cfg.ExpirationHours)
		})
	}
}

func TestOptionalJWTConfig(t *testing.T) {
	cfg, err := OptionalJWTConfig(envMap(map[string]string{}))
	require.NoError(t, err)
	assert.Nil(t, cfg, "auth disabled without a secret")

	cfg, err = OptionalJWTConfig(envMap(map[string]string{"JWT_SECRET": "s"}))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "s", cfg.Secret)

	_, err = OptionalJWTConfig(envMap(map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "-3"}))
	assert.Error(t, err)
}
