package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "tok")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "issuesense.yaml")
	writeConfig := func(model string) {
		content := "tracker:\n  token: tok\nmodel:\n  name: " + model + "\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	writeConfig("first-model")

	loaded := make(chan *Config, 1)
	w, err := NewWatcher(configPath, nil, func(cfg *Config) {
		select {
		case loaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watch loop a moment to start before touching the file.
	time.Sleep(100 * time.Millisecond)
	writeConfig("second-model")

	select {
	case cfg := <-loaded:
		if cfg.Model.Name != "second-model" {
			t.Errorf("expected second-model, got %s", cfg.Model.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "issuesense.yaml")
	if err := os.WriteFile(configPath, []byte("tracker:\n  token: tok\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loaded := make(chan *Config, 1)
	w, err := NewWatcher(configPath, nil, func(cfg *Config) {
		loaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	// Empty token fails validation; the callback must not fire.
	if err := os.WriteFile(configPath, []byte("tracker:\n  token: \"\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-loaded:
		t.Errorf("unexpected reload with config %+v", cfg)
	case <-time.After(700 * time.Millisecond):
	}
}
