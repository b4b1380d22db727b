package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/server"
)

type cliEnv struct {
	dataDir string
	env     map[string]string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "companies"), 0o755))

	policy := map[string]any{
		"companies": []map[string]any{
			{
				"slug":            "sega",
				"name":            "SEGA",
				"updateFrequency": "weekly",
				"lastUpdated":     time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339),
				"useRAG":          false,
			},
			{"slug": "newco", "name": "NewCo", "updateFrequency": "monthly", "lastUpdated": "", "useRAG": true},
		},
		"defaultUpdateFrequency":     "monthly",
		"deepResearchPromptTemplate": "Research {{name}}",
	}
	writeJSON(t, filepath.Join(dataDir, "update-config.json"), policy)
	writeJSON(t, filepath.Join(dataDir, "companies", "sega.json"), map[string]any{
		"id":           "sega",
		"name":         "SEGA",
		"description":  "Game publisher",
		"notableWorks": []string{"Sonic the Hedgehog"},
		"history":      []map[string]string{{"year": "1960", "event": "Founded"}},
	})

	return &cliEnv{dataDir: dataDir, env: map[string]string{"COMPANY_DATA_DIR": dataDir}}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func (e *cliEnv) lookup(key string) (string, bool) {
	v, ok := e.env[key]
	return v, ok
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, config.LookupFunc(e.lookup))
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := root.Execute()
	return out.String(), err
}

func TestDue(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "due")
	require.NoError(t, err)
	assert.Contains(t, out, "newco")
	assert.NotContains(t, out, "sega ")
	assert.Contains(t, out, "Total: 1")

	out, err = e.run(t, "due", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "sega")
	assert.Contains(t, out, "Total: 2")
}

func TestList(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SEGA (1 works, 1 history)")
	assert.Contains(t, out, "Total: 1")
}

func TestValidate(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Checked 2 files, 0 invalid")

	writeJSON(t, filepath.Join(e.dataDir, "companies", "broken.json"), map[string]any{"id": "broken", "name": "Broken"})
	out, err = e.run(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "broken.json")
	assert.Contains(t, out, "Checked 3 files, 1 invalid")
}

func TestToken(t *testing.T) {
	e := newCLIEnv(t)
	e.env["JWT_SECRET"] = "cli-secret"

	out, err := e.run(t, "token", "--subject", "scheduler")
	require.NoError(t, err)

	claims, err := server.NewJWTService(&config.JWTConfig{Secret: "cli-secret", ExpirationHours: 24}).
		ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "scheduler", claims.Subject)
}

func TestToken_RequiresSecret(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestUpdate_RequiresAPIKey(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "update", "sega")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestUpdate_RequiresSlug(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "update")
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	e := newCLIEnv(t)
	e.env["PAGE_CACHE"] = "memcached"

	_, err := e.run(t, "due")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CacheBackend")
}

func TestConfigFile(t *testing.T) {
	e := newCLIEnv(t)
	delete(e.env, "COMPANY_DATA_DIR")
	cfgPath := filepath.Join(t.TempDir(), "updater.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_dir: "+e.dataDir+"\n"), 0o644))

	out, err := e.run(t, "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SEGA")
}

func TestPruneCache_NoPostgres(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "prune-cache")
	require.NoError(t, err)
	assert.Contains(t, out, `Nothing to prune for cache backend "none"`)
}
