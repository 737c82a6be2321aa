package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %f", cfg.Model.Temperature)
	}
	if cfg.Model.Timeout != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %s", cfg.Model.Timeout)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if len(cfg.Enrich.IgnoreGlobs) == 0 {
		t.Error("expected default ignore globs")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing token",
			modify:  func(c *Config) { c.Tracker.Token = "" },
			wantErr: true,
		},
		{
			name:    "missing provider",
			modify:  func(c *Config) { c.Model.Provider = "" },
			wantErr: true,
		},
		{
			name:    "missing model name",
			modify:  func(c *Config) { c.Model.Name = "" },
			wantErr: true,
		},
		{
			name:    "temperature too low",
			modify:  func(c *Config) { c.Model.Temperature = -0.1 },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.Model.Temperature = 1.1 },
			wantErr: true,
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Tracker.Token = "tok"
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
tracker:
  token: "file-token"
model:
  provider: "anthropic"
  name: "test-model"
  temperature: 0.5
server:
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Tracker.Token != "file-token" {
		t.Errorf("expected token file-token, got %s", cfg.Tracker.Token)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", cfg.Model.Provider)
	}
	if cfg.Model.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %f", cfg.Model.Temperature)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Unset fields keep defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %s", cfg.Server.Host)
	}
}

func TestLoadFromFileExpandsEnv(t *testing.T) {
	t.Setenv("TEST_TRACKER_TOKEN", "from-env")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
tracker:
  token: "${TEST_TRACKER_TOKEN}"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Tracker.Token != "from-env" {
		t.Errorf("expected expanded token, got %s", cfg.Tracker.Token)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Tracker.Token = "base-token"

	other := &Config{}
	other.Model.Name = "override-model"
	other.Server.Port = 9999
	other.Enrich.IgnoreGlobs = []string{"docs/**"}

	base.Merge(other)

	if base.Model.Name != "override-model" {
		t.Errorf("expected override-model, got %s", base.Model.Name)
	}
	if base.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", base.Server.Port)
	}
	if len(base.Enrich.IgnoreGlobs) != 1 || base.Enrich.IgnoreGlobs[0] != "docs/**" {
		t.Errorf("expected overridden globs, got %v", base.Enrich.IgnoreGlobs)
	}
	// Zero values in other leave base untouched.
	if base.Tracker.Token != "base-token" {
		t.Errorf("expected base token preserved, got %s", base.Tracker.Token)
	}
	if base.Model.Provider != "openai" {
		t.Errorf("expected base provider preserved, got %s", base.Model.Provider)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	cfg := DefaultConfig()
	cfg.Tracker.Token = "file-token"
	cfg.Model.Provider = "anthropic"
	cfg.ApplyEnv()

	if cfg.Tracker.Token != "env-token" {
		t.Errorf("expected env token to win, got %s", cfg.Tracker.Token)
	}
	if cfg.Model.APIKey != "env-anthropic" {
		t.Errorf("expected anthropic key for anthropic provider, got %s", cfg.Model.APIKey)
	}

	cfg2 := DefaultConfig()
	cfg2.ApplyEnv()
	if cfg2.Model.APIKey != "env-openai" {
		t.Errorf("expected openai key for default provider, got %s", cfg2.Model.APIKey)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Tracker.Token = "tok"
	cfg.Model.Name = "roundtrip-model"
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Model.Name != "roundtrip-model" {
		t.Errorf("expected roundtrip-model, got %s", loaded.Model.Name)
	}
}
