package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source:
  projects_dir: /tmp/sessions
  idle_after: 5m
retro:
  server_url: http://localhost:9999
timeline:
  horizon: 4h
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Source.ProjectsDir != "/tmp/sessions" {
		t.Errorf("ProjectsDir = %q", cfg.Source.ProjectsDir)
	}
	if cfg.Source.IdleAfter != 5*time.Minute {
		t.Errorf("IdleAfter = %v, want 5m", cfg.Source.IdleAfter)
	}
	if cfg.Retro.ServerURL != "http://localhost:9999" {
		t.Errorf("ServerURL = %q", cfg.Retro.ServerURL)
	}
	if cfg.Timeline.Horizon != 4*time.Hour {
		t.Errorf("Horizon = %v, want 4h", cfg.Timeline.Horizon)
	}

	// Unset keys keep their defaults.
	if cfg.Refresh.Tick != time.Second {
		t.Errorf("Tick = %v, want default 1s", cfg.Refresh.Tick)
	}
	if cfg.Retro.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", cfg.Retro.Timeout)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Timeline.Horizon != 8*time.Hour {
		t.Errorf("Horizon = %v, want 8h", cfg.Timeline.Horizon)
	}
	if cfg.Source.IdleAfter != 2*time.Minute {
		t.Errorf("IdleAfter = %v, want 2m", cfg.Source.IdleAfter)
	}
	if cfg.Refresh.Resync != 10*time.Second {
		t.Errorf("Resync = %v, want 10s", cfg.Refresh.Resync)
	}
}
