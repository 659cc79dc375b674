// Package config handles configuration loading and management for fleetwatch.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/fleetwatch/fleetwatch/internal/source"
)

// Config holds all configuration for fleetwatch.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Retro    RetroConfig    `mapstructure:"retro"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
}

// SourceConfig holds session-log ingestion settings.
type SourceConfig struct {
	// ProjectsDir is the directory holding per-project session logs.
	ProjectsDir string `mapstructure:"projects_dir"`
	// DBPath is the sqlite database the source maintains.
	DBPath string `mapstructure:"db_path"`
	// IdleAfter is how long without activity before a session counts as idle.
	IdleAfter time.Duration `mapstructure:"idle_after"`
}

// RetroConfig holds analysis-server settings.
type RetroConfig struct {
	// ServerURL is the base URL of the retro analysis service.
	ServerURL string `mapstructure:"server_url"`
	// Timeout bounds each fetch against the service.
	Timeout time.Duration `mapstructure:"timeout"`
}

// TimelineConfig holds timeline display settings.
type TimelineConfig struct {
	// Horizon is the width of the full (unzoomed) window.
	Horizon time.Duration `mapstructure:"horizon"`
}

// RefreshConfig holds the dashboard's two refresh cadences.
type RefreshConfig struct {
	// Tick drives elapsed-time recomputation and redraws.
	Tick time.Duration `mapstructure:"tick"`
	// Resync drives full roster re-sync and timeline refetches.
	Resync time.Duration `mapstructure:"resync"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (FLEETWATCH_*)
// 2. Project config (.fleetwatch.yaml in current directory or parent)
// 3. User config (~/.config/fleetwatch/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("FLEETWATCH")

	v.BindEnv("source.projects_dir", "FLEETWATCH_PROJECTS_DIR")
	v.BindEnv("retro.server_url", "FLEETWATCH_RETRO_URL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Source.ProjectsDir = os.ExpandEnv(cfg.Source.ProjectsDir)
	cfg.Source.DBPath = os.ExpandEnv(cfg.Source.DBPath)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.projects_dir", defaultProjectsDir())
	v.SetDefault("source.db_path", source.DefaultDBPath())
	v.SetDefault("source.idle_after", "2m")

	v.SetDefault("retro.server_url", "http://127.0.0.1:5599")
	v.SetDefault("retro.timeout", "10s")

	v.SetDefault("timeline.horizon", "8h")

	v.SetDefault("refresh.tick", "1s")
	v.SetDefault("refresh.resync", "10s")
}

// getUserConfigDir returns the XDG config directory for fleetwatch.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fleetwatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "fleetwatch")
	}
	return filepath.Join(home, ".config", "fleetwatch")
}

// defaultProjectsDir returns the standard Claude Code session-log root.
func defaultProjectsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".claude", "projects")
	}
	return filepath.Join(home, ".claude", "projects")
}

// findProjectConfig searches for .fleetwatch.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".fleetwatch.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			ProjectsDir: defaultProjectsDir(),
			DBPath:      source.DefaultDBPath(),
			IdleAfter:   2 * time.Minute,
		},
		Retro: RetroConfig{
			ServerURL: "http://127.0.0.1:5599",
			Timeout:   10 * time.Second,
		},
		Timeline: TimelineConfig{
			Horizon: 8 * time.Hour,
		},
		Refresh: RefreshConfig{
			Tick:   time.Second,
			Resync: 10 * time.Second,
		},
	}
}
