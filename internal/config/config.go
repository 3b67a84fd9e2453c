// Package config provides configuration loading and structs for the Tally server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Queue    QueueConfig    `yaml:"queue"`
	Export   ExportConfig   `yaml:"export"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the record database and finished artifacts.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	ArtifactDir  string `yaml:"artifact_dir"`
}

// QueueConfig sizes the background job runtime.
type QueueConfig struct {
	Workers int `yaml:"workers"`
	Buffer  int `yaml:"buffer"`
	History int `yaml:"history"` // finished jobs kept for status lookups
}

// ExportConfig holds the export pipeline settings.
type ExportConfig struct {
	DefaultTarget string `yaml:"default_target"`
	DefaultMode   string `yaml:"default_mode"`
	SheetTitle    string `yaml:"sheet_title"`
	// NameSuffix is appended to each name during row preparation. Unset means the default marker;
	// an explicit empty string disables the transform.
	NameSuffix     *string            `yaml:"name_suffix"`
	ReferenceEmail string             `yaml:"reference_email"`
	DerivedLabel   string             `yaml:"derived_label"`
	Labels         map[string]string  `yaml:"labels"`
	ColumnWidths   map[string]float64 `yaml:"column_widths"` // by column letter, e.g. "C"
	WrapColumns    []string           `yaml:"wrap_columns"`
	MinWidth       float64            `yaml:"min_width"`
	MaxWidth       float64            `yaml:"max_width"`
}

// NameSuffixOrDefault returns the configured suffix, or DefaultNameSuffix when unset.
func (e *ExportConfig) NameSuffixOrDefault() string {
	if e.NameSuffix != nil {
		return *e.NameSuffix
	}
	return DefaultNameSuffix
}

// ScheduleConfig enables periodic exports of the full record set. Empty Cron disables it.
type ScheduleConfig struct {
	Cron   string `yaml:"cron"`
	Target string `yaml:"target"`
	Mode   string `yaml:"mode"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// EnabledOrDefault returns whether metrics are exposed; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.ArtifactDir = expandPath(cfg.Storage.ArtifactDir, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
