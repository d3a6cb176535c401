// Package config resolves engine settings for a workspace. Settings come
// from an optional loom.yaml at the workspace root, overridable through
// LOOM_* environment variables, with sensible defaults for everything.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ConfigFileName is the optional settings file at the workspace root.
const ConfigFileName = "loom.yaml"

// Config holds the runtime configuration for one workspace.
type Config struct {
	// Workspace is the directory the engine operates in.
	Workspace string

	// SystemDir holds shared system-level fragments, relative to Workspace.
	SystemDir string
	// ProfilesDir holds one subdirectory per profile, relative to Workspace.
	ProfilesDir string
	// OutputDir receives compiled documents, relative to Workspace.
	OutputDir string

	// DefaultProfile is used when no profile flag is given.
	DefaultProfile string

	// LogFile, when set, receives a copy of the engine log.
	LogFile string
}

// Load resolves configuration for the given workspace directory.
func Load(workspace string) (*Config, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("config: resolve workspace %s: %w", workspace, err)
	}

	v := viper.New()
	v.SetDefault("system_dir", "system")
	v.SetDefault("profiles_dir", "profiles")
	v.SetDefault("output_dir", "output")
	v.SetDefault("default_profile", "")
	v.SetDefault("log_file", "")
	v.SetEnvPrefix("LOOM")
	v.AutomaticEnv()

	path := filepath.Join(abs, ConfigFileName)
	if _, statErr := os.Stat(path); statErr == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, statErr)
	}

	return &Config{
		Workspace:      abs,
		SystemDir:      v.GetString("system_dir"),
		ProfilesDir:    v.GetString("profiles_dir"),
		OutputDir:      v.GetString("output_dir"),
		DefaultProfile: strings.TrimSpace(v.GetString("default_profile")),
		LogFile:        strings.TrimSpace(v.GetString("log_file")),
	}, nil
}

// SystemRoot returns the absolute system fragment root.
func (c *Config) SystemRoot() string {
	return filepath.Join(c.Workspace, c.SystemDir)
}

// ProfilesRoot returns the absolute profiles root.
func (c *Config) ProfilesRoot() string {
	return filepath.Join(c.Workspace, c.ProfilesDir)
}

// OutputRoot returns the absolute output root.
func (c *Config) OutputRoot() string {
	return filepath.Join(c.Workspace, c.OutputDir)
}

// ProfileDir returns the fragment root for one profile.
func (c *Config) ProfileDir(name string) string {
	return filepath.Join(c.ProfilesRoot(), name)
}

// ManifestPath returns the manifest location for one profile.
func (c *Config) ManifestPath(name string) string {
	return filepath.Join(c.ProfileDir(name), "manifest.yaml")
}

// ListProfiles returns the names of all profiles that carry a manifest,
// sorted for deterministic presentation.
func (c *Config) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(c.ProfilesRoot())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: list profiles: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(c.ManifestPath(entry.Name())); err != nil {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
