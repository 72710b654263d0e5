package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/tilter/internal/tiltschema"
)

// DefaultRule assigns a fallback value at a schema path when assembly
// produced nothing there.
type DefaultRule struct {
	Path  []string `json:"path"`
	Value any      `json:"value"`
}

// Config represents the flat tilter configuration
type Config struct {
	Version     string        `json:"version"`
	SchemaPath  string        `json:"schema_path"`
	Language    string        `json:"language,omitempty"`
	RegistryURL string        `json:"registry_url,omitempty"`
	ListenAddr  string        `json:"listen_addr,omitempty"`
	FeedDir     string        `json:"feed_dir,omitempty"`
	Defaults    []DefaultRule `json:"tilt_defaults,omitempty"`
}

// LoadConfig reads .tilter/config.json from the specified directory.
// Resolution order: cwd only (no home fallback).
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ".tilter", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	return &cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	tilterDir := filepath.Join(dir, ".tilter")
	if err := os.MkdirAll(tilterDir, 0755); err != nil {
		return fmt.Errorf("failed to create .tilter dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(tilterDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ValidateDefaults checks every default rule path against the schema so a
// typo fails at startup instead of silently never matching.
func ValidateDefaults(schema *tiltschema.Schema, rules []DefaultRule) error {
	for _, rule := range rules {
		if len(rule.Path) == 0 {
			return fmt.Errorf("default rule has empty path")
		}
		if err := schema.ValidatePath(rule.Path); err != nil {
			return fmt.Errorf("invalid default path %v: %w", rule.Path, err)
		}
	}
	return nil
}
