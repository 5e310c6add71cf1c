package deta

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variable names for credential resolution.
const (
	// EnvAPIKey is the primary API key variable.
	EnvAPIKey = "DETA_API_KEY"
	// EnvAPIKeyLegacy is the variable name used by older tooling and
	// the integration test harness.
	EnvAPIKeyLegacy = "API_KEY"
)

// FileConfig is the on-disk configuration file shape (TOML).
type FileConfig struct {
	APIKey string `toml:"api_key"`
}

// LoadConfig reads a TOML configuration file. Unknown keys are an
// error, so typos in the file surface immediately instead of silently
// falling back to defaults.
func LoadConfig(path string) (*FileConfig, error) {
	var cfg FileConfig

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("deta: reading config file %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("deta: config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// NewFromEnv creates a Client with the API key resolved from the
// environment: DETA_API_KEY first, then API_KEY.
func NewFromEnv(opts ...Option) (*Client, error) {
	key := os.Getenv(EnvAPIKey)
	if key == "" {
		key = os.Getenv(EnvAPIKeyLegacy)
	}

	if key == "" {
		return nil, fmt.Errorf("deta: no API key: set %s or %s", EnvAPIKey, EnvAPIKeyLegacy)
	}

	return New(key, opts...)
}

// NewFromConfigFile creates a Client with the API key read from a TOML
// configuration file.
func NewFromConfigFile(path string, opts ...Option) (*Client, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deta: config file %s: api_key is empty", path)
	}

	return New(cfg.APIKey, opts...)
}
