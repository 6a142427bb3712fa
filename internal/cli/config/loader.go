// Package config defines the CLI configuration structure.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".sirius", "cli.yaml")
}

// Load loads CLI configuration from file, returning Default() if the file
// does not exist.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]ConnectionConfig)
	}
	return cfg, nil
}

// Save saves CLI configuration to file, creating its parent directory if
// needed.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Merge layers environment variables and then flag values onto cfg,
// returning the merged result. flags take precedence over env, which
// takes precedence over the file's own values.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	merged := *cfg
	if v, ok := env["SIRIUS_SERVER"]; ok && v != "" {
		merged.DefaultServer = v
	}
	if v, ok := flags["server"]; ok && v != "" {
		merged.DefaultServer = v
	}
	if v, ok := flags["output"]; ok && v != "" {
		merged.DefaultOutput = v
	}
	return &merged
}
