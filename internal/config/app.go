// Package config provides configuration management for the discipline
// guard: the host-process settings loaded from TOML, and the discipline
// rule presets applied at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// App holds host-process configuration. The discipline rules themselves
// live in storage (models.Config), not here: they change at runtime
// through the CLI and the page companion.
type App struct {
	Listen   ListenConfig   `mapstructure:"listen"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Timezone TimezoneConfig `mapstructure:"timezone"`
}

// ListenConfig holds the websocket endpoint settings.
type ListenConfig struct {
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ScrapeConfig tunes the detection pipeline.
type ScrapeConfig struct {
	Labels     []string      `mapstructure:"labels"`
	PollEvery  time.Duration `mapstructure:"poll_every"`
	Debounce   time.Duration `mapstructure:"debounce"`
	NoiseFloor float64       `mapstructure:"noise_floor"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// TimezoneConfig selects the day-boundary timezone.
type TimezoneConfig struct {
	Name string `mapstructure:"name"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/anchor"
	}
	return filepath.Join(home, ".config", "anchor")
}

// DefaultDBPath returns the default database location inside the
// config directory.
func DefaultDBPath() string {
	return filepath.Join(DefaultConfigDir(), "anchor.db")
}

// Load loads host configuration from the specified directory. If
// configDir is empty, the default config directory is used. A missing
// config file is replaced by a generated template and reported as an
// error so the user can review it.
func Load(configDir string) (*App, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("listen.address", "127.0.0.1:8947")
	v.SetDefault("listen.path", "/feed")
	v.SetDefault("storage.path", DefaultDBPath())
	v.SetDefault("scrape.labels", []string{"Realized P&L"})
	v.SetDefault("scrape.poll_every", "2s")
	v.SetDefault("scrape.debounce", "250ms")
	v.SetDefault("scrape.noise_floor", 0.5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("timezone.name", "Local")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, createTemplateConfig(configDir)
		}
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	cfg := &App{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	// The template ships storage.path = "" meaning "use the default";
	// an explicit empty value in the file wins over viper's default.
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultDBPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads host configuration, falling back to defaults when
// no config file exists. Used by read-only commands that should not
// demand a config file.
func LoadOrDefault(configDir string) *App {
	cfg, err := Load(configDir)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in host configuration.
func Default() *App {
	return &App{
		Listen:   ListenConfig{Address: "127.0.0.1:8947", Path: "/feed"},
		Storage:  StorageConfig{Path: DefaultDBPath()},
		Scrape:   ScrapeConfig{Labels: []string{"Realized P&L"}, PollEvery: 2 * time.Second, Debounce: 250 * time.Millisecond, NoiseFloor: 0.5},
		Logging:  LoggingConfig{Level: "info"},
		Timezone: TimezoneConfig{Name: "Local"},
	}
}

func applyEnvOverrides(cfg *App) {
	if v := os.Getenv("ANCHOR_LISTEN"); v != "" {
		cfg.Listen.Address = v
	}
	if v := os.Getenv("ANCHOR_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ANCHOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANCHOR_TZ"); v != "" {
		cfg.Timezone.Name = v
	}
}

// Validate validates the host configuration.
func (c *App) Validate() error {
	if c.Listen.Address == "" {
		return fmt.Errorf("listen.address must not be empty")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	if len(c.Scrape.Labels) == 0 {
		return fmt.Errorf("scrape.labels must name at least one label")
	}
	if c.Scrape.PollEvery <= 0 {
		return fmt.Errorf("scrape.poll_every must be positive")
	}
	if c.Scrape.NoiseFloor < 0 {
		return fmt.Errorf("scrape.noise_floor must be non-negative")
	}
	return nil
}

// Location resolves the day-boundary timezone. "Local" and the empty
// string mean the host's local time.
func (c *App) Location() (*time.Location, error) {
	if c.Timezone.Name == "" || c.Timezone.Name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone.Name)
}
