// Package config provides configuration loading and management for
// issuesense.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete issuesense configuration
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Model   ModelConfig   `yaml:"model"`
	Enrich  EnrichConfig  `yaml:"enrich"`
	Server  ServerConfig  `yaml:"server"`
}

// TrackerConfig configures the issue tracker connection
type TrackerConfig struct {
	// Token is the API token used for tracker requests
	Token string `yaml:"token"`
	// BaseURL overrides the API base URL (empty = github.com)
	BaseURL string `yaml:"base_url"`
}

// ModelConfig configures the analysis model settings
type ModelConfig struct {
	// Provider selects the endpoint dialect ("openai", "anthropic", "ollama")
	Provider string `yaml:"provider"`
	// Name is the model to use (e.g., "gpt-4o-mini")
	Name string `yaml:"name"`
	// Endpoint overrides the provider's default API endpoint
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates against the endpoint
	APIKey string `yaml:"api_key"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// EnrichConfig configures the enrichment stage
type EnrichConfig struct {
	// IgnoreGlobs excludes matching file paths from commit history
	// lookups (e.g. "vendor/**", "**/*.lock")
	IgnoreGlobs []string `yaml:"ignore_globs"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{},
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "gpt-4o-mini",
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Enrich: EnrichConfig{
			IgnoreGlobs: []string{"vendor/**", "**/*.lock", "**/*.sum"},
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Tracker.Token == "" {
		return fmt.Errorf("tracker.token is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. ${VAR} references
// in the file are expanded from the environment before parsing, so
// secrets can live outside the file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Tracker
	if other.Tracker.Token != "" {
		c.Tracker.Token = other.Tracker.Token
	}
	if other.Tracker.BaseURL != "" {
		c.Tracker.BaseURL = other.Tracker.BaseURL
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.APIKey != "" {
		c.Model.APIKey = other.Model.APIKey
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// Enrich
	if len(other.Enrich.IgnoreGlobs) > 0 {
		c.Enrich.IgnoreGlobs = other.Enrich.IgnoreGlobs
	}

	// Server
	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
}

// ApplyEnv overlays well-known environment variables onto the config.
// Values already set in the file win over the environment, except the
// token and API key, where the environment wins so that deployments can
// rotate credentials without touching config files.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Tracker.Token = v
	}
	if v := os.Getenv("GITHUB_API_BASE_URL"); v != "" && c.Tracker.BaseURL == "" {
		c.Tracker.BaseURL = v
	}

	var keyVar string
	switch c.Model.Provider {
	case "anthropic":
		keyVar = "ANTHROPIC_API_KEY"
	default:
		keyVar = "OPENAI_API_KEY"
	}
	if v := os.Getenv(keyVar); v != "" {
		c.Model.APIKey = v
	}
}
