package deta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `api_key = "proj_secret"`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "proj_secret", cfg.APIKey)
}

func TestLoadConfig_UnknownKeys(t *testing.T) {
	path := writeTempConfig(t, "api_key = \"proj_secret\"\napikey = \"typo\"\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "apikey")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestNewFromConfigFile(t *testing.T) {
	path := writeTempConfig(t, `api_key = "proj_secret"`)

	client, err := NewFromConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "proj", client.ProjectID())
}

func TestNewFromConfigFile_EmptyKey(t *testing.T) {
	path := writeTempConfig(t, "")

	_, err := NewFromConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is empty")
}

func TestNewFromEnv_Primary(t *testing.T) {
	t.Setenv(EnvAPIKey, "primary_secret")
	t.Setenv(EnvAPIKeyLegacy, "legacy_secret")

	client, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "primary", client.ProjectID())
}

func TestNewFromEnv_LegacyFallback(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPIKeyLegacy, "legacy_secret")

	client, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "legacy", client.ProjectID())
}

func TestNewFromEnv_Unset(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvAPIKeyLegacy, "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestNewFromEnv_MalformedKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "nounderscore")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed API key")
}
