// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CreditsConfig sizes the per-interaction credit ledger.
type CreditsConfig struct {
	MaxMs   int `yaml:"max_ms" description:"Maximum banked script CPU time per environment, in milliseconds" default:"300"`
	GrantMs int `yaml:"grant_ms" description:"Script CPU time granted on every invoke and resume, in milliseconds" default:"5"`
}

// Config holds tickscript configuration settings
type Config struct {
	ScriptsDir        string        `yaml:"scripts_dir" description:"Scripts root directory (relative to data dir)" default:"scripts"`
	Libraries         []string      `yaml:"libraries" description:"Shared libraries loaded before every interaction script (relative to scripts_dir)" default:"[lib/core.js, lib/dialogue.js]"`
	Credits           CreditsConfig `yaml:"credits" description:"Script CPU budget"`
	TickMs            int           `yaml:"tick_ms" description:"World tick length in milliseconds" default:"600"`
	Watch             bool          `yaml:"watch" description:"Recompile scripts when files under scripts_dir change" default:"true"`
	UniqueEntryPoints bool          `yaml:"unique_entry_points" description:"Reject scripts that redefine an already loaded function" default:"false"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		ScriptsDir: "scripts",
		Libraries:  []string{"lib/core.js", "lib/dialogue.js"},
		Credits: CreditsConfig{
			MaxMs:   300,
			GrantMs: 5,
		},
		TickMs: 600,
		Watch:  true,
	}
}

// MaxCredits returns credits.max_ms as a duration.
func (c *Config) MaxCredits() time.Duration {
	return time.Duration(c.Credits.MaxMs) * time.Millisecond
}

// CreditsPerCall returns credits.grant_ms as a duration.
func (c *Config) CreditsPerCall() time.Duration {
	return time.Duration(c.Credits.GrantMs) * time.Millisecond
}

// TickPeriod returns tick_ms as a duration.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// DataDirEnv overrides the default data directory.
const DataDirEnv = "TICKSCRIPT_DATA"

// GetDataDir returns the tickscript data directory.
// Resolution order: -d flag > TICKSCRIPT_DATA env var > ~/.tickscript
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv(DataDirEnv); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Can't determine default
	}
	return filepath.Join(home, ".tickscript")
}

// RequireDataDir resolves the data directory like GetDataDir and exits if
// it cannot be determined.
func RequireDataDir(flagValue string) string {
	dir := GetDataDir(flagValue)
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Error: Could not determine data directory")
		fmt.Fprintf(os.Stderr, "Use -d <path> or set %s environment variable\n", DataDirEnv)
		os.Exit(1)
	}
	return dir
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath resolves a path relative to baseDir if not absolute.
// Returns path unchanged if empty or already absolute.
func ResolvePath(path, baseDir string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads config.yaml from the data directory. A relative
// scripts_dir is resolved against dataDir.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	config.ScriptsDir = ResolvePath(config.ScriptsDir, dataDir)
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ScriptsDir == "" {
		return fmt.Errorf("scripts_dir may not be empty")
	}
	if c.Credits.MaxMs <= 0 {
		return fmt.Errorf("credits.max_ms must be positive, got %d", c.Credits.MaxMs)
	}
	if c.Credits.GrantMs <= 0 {
		return fmt.Errorf("credits.grant_ms must be positive, got %d", c.Credits.GrantMs)
	}
	if c.Credits.GrantMs > c.Credits.MaxMs {
		return fmt.Errorf("credits.grant_ms (%d) exceeds credits.max_ms (%d)", c.Credits.GrantMs, c.Credits.MaxMs)
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMs)
	}
	for _, lib := range c.Libraries {
		if filepath.IsAbs(lib) {
			return fmt.Errorf("library %q must be relative to scripts_dir", lib)
		}
	}
	return nil
}

// DisplayConfig prints the current configuration
func DisplayConfig(dataDir string) {
	config, err := LoadConfig(dataDir)
	configPath := GetConfigPath(dataDir)

	fmt.Println("Current Configuration:")
	fmt.Println("=====================")
	fmt.Printf("Data dir:    %s\n", dataDir)
	fmt.Printf("Config file: %s\n", configPath)
	if err != nil {
		fmt.Printf("Error:       %v\n", err)
		fmt.Println()
		return
	}
	fmt.Printf("Scripts:     %s\n", config.ScriptsDir)
	fmt.Printf("Libraries:   %v\n", config.Libraries)
	fmt.Printf("Credits:     %v max, %v per call\n", config.MaxCredits(), config.CreditsPerCall())
	fmt.Printf("Tick:        %v\n", config.TickPeriod())
	fmt.Printf("Watch:       %v\n", config.Watch)
	fmt.Printf("Unique:      %v\n", config.UniqueEntryPoints)
	fmt.Println()
}
