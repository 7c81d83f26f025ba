// Package config loads anchor's settings from <data dir>/config.yaml.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stefanpenner/anchor/pkg/store"
)

// FileName is the config file inside the data directory.
const FileName = "config.yaml"

// Config is the complete anchor configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
	Calendar CalendarConfig `yaml:"calendar"`
	TUI      TUIConfig      `yaml:"tui"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "file" or "sqlite".
	Backend store.Backend `yaml:"backend"`
	// SQLitePath is the database file; empty means <data dir>/anchor.db.
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// LogConfig configures slog.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
}

// CalendarConfig fixes the day boundaries used for deadline comparisons.
type CalendarConfig struct {
	// Timezone is an IANA name, or "Local".
	Timezone string `yaml:"timezone"`
}

// TUIConfig configures the terminal UI.
type TUIConfig struct {
	// CompletionDelay is how long a completion shows as "completing" before
	// it is applied.
	CompletionDelay time.Duration `yaml:"completion_delay"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Backend: store.BackendFile},
		Log:      LogConfig{Level: "info"},
		Calendar: CalendarConfig{Timezone: "Local"},
		TUI:      TUIConfig{CompletionDelay: 600 * time.Millisecond},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendFile, store.BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", store.BackendFile, store.BackendSQLite, c.Store.Backend)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	if c.TUI.CompletionDelay < 0 {
		return fmt.Errorf("tui.completion_delay must not be negative")
	}
	return nil
}

// Location resolves the calendar time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" || strings.EqualFold(c.Calendar.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Calendar.Timezone)
}

// StoreOptions turns the store section into options for store.Open.
func (c *Config) StoreOptions(dataDir string, logger *slog.Logger) store.Options {
	path := c.Store.SQLitePath
	if path == "" {
		path = filepath.Join(dataDir, "anchor.db")
	}
	return store.Options{
		Backend:    c.Store.Backend,
		Dir:        dataDir,
		SQLitePath: path,
		Logger:     logger,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q (use debug, info, warn or error)", s)
	}
	return level, nil
}

// Path returns the config file location for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads <dataDir>/config.yaml over the defaults. A missing file is not
// an error.
func Load(dataDir string) (*Config, error) {
	cfg, err := LoadFromFile(Path(dataDir))
	if os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", Path(dataDir), err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. Unset fields keep their
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
