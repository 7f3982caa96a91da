// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the service configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags or environment variables.
type Config struct {
	Port      int    `json:"port,omitempty"`       // HTTP listen port
	UploadDir string `json:"upload_dir,omitempty"` // Directory for temporary receipt uploads
	APIKey    string `json:"api_key,omitempty"`    // Gemini API key

	// Model overrides per tier; empty values use the built-in defaults.
	ModelLite     string `json:"model_lite,omitempty"`
	ModelStandard string `json:"model_standard,omitempty"`
	ModelAdvanced string `json:"model_advanced,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked after merging with flags and environment.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.UploadDir != "" {
		if info, err := os.Stat(c.UploadDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: 'upload_dir' is not a directory: %s", c.UploadDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. This is used to apply config file values under CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.UploadDir == "" {
		result.UploadDir = defaults.UploadDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ModelLite == "" {
		result.ModelLite = defaults.ModelLite
	}
	if result.ModelStandard == "" {
		result.ModelStandard = defaults.ModelStandard
	}
	if result.ModelAdvanced == "" {
		result.ModelAdvanced = defaults.ModelAdvanced
	}

	return result
}
