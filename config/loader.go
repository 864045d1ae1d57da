package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. QUOTEVEC_STORE_DSN.
const EnvPrefix = "QUOTEVEC"

// PathEnv names the variable holding the config file path.
const PathEnv = EnvPrefix + "_CONFIG"

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults. An empty path falls back to
// $QUOTEVEC_CONFIG; when neither is set only defaults and environment apply.
// A missing file at an explicitly given path is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with environment variables for each group.
func ApplyEnv(cfg *Config) error {
	groups := []struct {
		prefix string
		spec   any
	}{
		{EnvPrefix + "_EMBEDDER", &cfg.Embedder},
		{EnvPrefix + "_STORE", &cfg.Store},
		{EnvPrefix + "_QUERY", &cfg.Query},
		{EnvPrefix + "_BOT", &cfg.Bot},
		{EnvPrefix + "_SLACK", &cfg.Slack},
		{EnvPrefix + "_LOG", &cfg.Log},
		{EnvPrefix + "_HEALTH", &cfg.Health},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return fmt.Errorf("config: %s: %w", g.prefix, err)
		}
	}
	return nil
}

// Save writes cfg to path as indented JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
