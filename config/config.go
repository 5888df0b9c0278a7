// Package config loads engine configuration from a TOML file with
// environment-variable overrides for credentials.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the persisted configuration file schema.
type Config struct {
	// Provider selects the model backend: "openai" (default) or "anthropic".
	Provider string `toml:"provider"`
	// Model is the provider-specific model identifier.
	Model string `toml:"model"`
	// BaseURL overrides the provider endpoint (proxies, compatible servers).
	BaseURL string `toml:"base_url"`
	// APIKey authenticates against the provider. Prefer the environment
	// variables over persisting secrets to disk.
	APIKey string `toml:"api_key"`

	// MaxIterations bounds the number of tool steps per call.
	MaxIterations int `toml:"max_iterations"`
	// BreakIfError escalates tool failures to fatal errors.
	BreakIfError bool `toml:"break_if_error"`

	// Source records where the config was loaded from.
	Source string `toml:"-"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Provider:      "openai",
		MaxIterations: 10,
	}
}

// DefaultPath returns the conventional config location, or "" when the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mcpagent", "config.toml")
}

// Load reads the config file at path (DefaultPath when empty). A missing file
// is not an error: defaults plus environment overrides are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

// applyEnv lets the environment override credential-bearing fields.
func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); env != "" {
		cfg.BaseURL = env
	}
	if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" && cfg.Provider != "anthropic" {
		cfg.APIKey = env
	}
	if env := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); env != "" && cfg.Provider == "anthropic" {
		cfg.APIKey = env
	}
	return cfg
}
