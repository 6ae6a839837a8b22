// Package config loads gqlcheck settings from ini files with embedded defaults.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

//go:embed defaults/config
var defaultsFS embed.FS

// localDirName is the per-project config directory looked up in the working directory.
const localDirName = ".gqlcheck"

// Config holds all resolved configuration.
type Config struct {
	Values
	Colors ColorConfig

	configDir string // global config directory
	localDir  string // project-local config directory, empty if absent
}

// DefaultsFS returns the embedded defaults filesystem.
func DefaultsFS() embed.FS {
	return defaultsFS
}

// DefaultConfigDir returns the global config directory, ~/.config/gqlcheck.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "gqlcheck")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "gqlcheck")
	}
	return filepath.Join(home, ".config", "gqlcheck")
}

// Load reads configuration from configDir (DefaultConfigDir if empty) and the optional
// .gqlcheck directory in the working directory. defaults are installed into configDir on first run.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	localDir := ""
	if info, err := os.Stat(localDirName); err == nil && info.IsDir() {
		localDir = localDirName
	}

	return loadWithLocal(configDir, localDir)
}

// loadWithLocal loads configuration from explicit global and local directories.
func loadWithLocal(globalDir, localDir string) (*Config, error) {
	if err := newDefaultsInstaller(defaultsFS).Install(globalDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	globalPath := filepath.Join(globalDir, "config")
	localPath := ""
	if localDir != "" {
		localPath = filepath.Join(localDir, "config")
	}

	values, err := newValuesLoader(defaultsFS).Load(localPath, globalPath)
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	colors, err := newColorLoader(defaultsFS).Load(localPath, globalPath)
	if err != nil {
		return nil, fmt.Errorf("load colors: %w", err)
	}

	return &Config{Values: values, Colors: colors, configDir: globalDir, localDir: localDir}, nil
}

// ConfigDir returns the global config directory used by Load.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// LocalDir returns the project-local config directory, empty if none was found.
func (c *Config) LocalDir() string {
	return c.localDir
}

// Timeout returns the browser default timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SlowMo returns the browser slow-motion delay as a duration.
func (c *Config) SlowMo() time.Duration {
	return time.Duration(c.SlowMoMs) * time.Millisecond
}
