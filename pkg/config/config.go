// Package config provides configuration loading and management for
// streamcurate. It handles loading configuration from YAML files and
// provides default values; command line flags override whatever the
// file says.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Session parameters
	Session struct {
		// DefaultThreshold is the clustering threshold applied when a
		// bundle is selected. Zero means the widest usable threshold,
		// which previews a single cluster.
		DefaultThreshold float64 `yaml:"defaultThreshold"`

		// UndoCapacity is how many accept/reject actions the undo
		// memory holds before the oldest falls off.
		UndoCapacity int `yaml:"undoCapacity"`

		// ScreenWidth and ScreenHeight set the viewer size in pixels.
		ScreenWidth  int `yaml:"screenWidth"`
		ScreenHeight int `yaml:"screenHeight"`
	} `yaml:"session"`

	// Clustering parameters
	Clustering struct {
		// ResamplePoints is the fixed point count streamlines are
		// resampled to before distances are computed.
		ResamplePoints int `yaml:"resamplePoints"`

		// FlipInvariant switches the distance to the direct-flip
		// minimum, so head-to-tail orientation no longer separates
		// otherwise identical streamlines.
		FlipInvariant bool `yaml:"flipInvariant"`
	} `yaml:"clustering"`

	// Output parameters
	Output struct {
		// Prefix for saved bundle files. Empty means derive it from
		// the basename of the first input tractogram.
		Prefix string `yaml:"prefix"`

		// Extension used for saved track files.
		Extension string `yaml:"extension"`

		// JournalPath is the SQLite file curation decisions are
		// recorded in. Empty disables the journal.
		JournalPath string `yaml:"journalPath"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Anatomy parameters
	Anatomy struct {
		// Path to a NIfTI volume displayed underneath the streamlines.
		Path string `yaml:"path"`
	} `yaml:"anatomy"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default session parameters
	cfg.Session.DefaultThreshold = 0
	cfg.Session.UndoCapacity = 2
	cfg.Session.ScreenWidth = 1360
	cfg.Session.ScreenHeight = 768

	// Set default clustering parameters
	cfg.Clustering.ResamplePoints = 30
	cfg.Clustering.FlipInvariant = false

	// Set default output parameters
	cfg.Output.Prefix = ""
	cfg.Output.Extension = ".tck"
	cfg.Output.JournalPath = ""
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
