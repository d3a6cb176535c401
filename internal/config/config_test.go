package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoConfigFile(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SystemDir != "system" || cfg.ProfilesDir != "profiles" || cfg.OutputDir != "output" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultProfile != "" {
		t.Fatalf("expected empty default profile, got %q", cfg.DefaultProfile)
	}
	if got, want := cfg.SystemRoot(), filepath.Join(cfg.Workspace, "system"); got != want {
		t.Fatalf("SystemRoot = %q, want %q", got, want)
	}
}

func TestLoadParsesConfigFile(t *testing.T) {
	workspace := t.TempDir()
	configYAML := `system_dir: shared
output_dir: build
default_profile: staging
log_file: loom.log
`
	if err := os.WriteFile(filepath.Join(workspace, ConfigFileName), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SystemDir != "shared" {
		t.Fatalf("system_dir not applied: %q", cfg.SystemDir)
	}
	if cfg.OutputDir != "build" {
		t.Fatalf("output_dir not applied: %q", cfg.OutputDir)
	}
	if cfg.ProfilesDir != "profiles" {
		t.Fatalf("unset key must keep its default, got %q", cfg.ProfilesDir)
	}
	if cfg.DefaultProfile != "staging" {
		t.Fatalf("default_profile not applied: %q", cfg.DefaultProfile)
	}
	if cfg.LogFile != "loom.log" {
		t.Fatalf("log_file not applied: %q", cfg.LogFile)
	}
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, ConfigFileName), []byte("{::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(workspace); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestProfilePaths(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.ProfileDir("staging"), filepath.Join(cfg.Workspace, "profiles", "staging"); got != want {
		t.Fatalf("ProfileDir = %q, want %q", got, want)
	}
	if got, want := cfg.ManifestPath("staging"), filepath.Join(cfg.Workspace, "profiles", "staging", "manifest.yaml"); got != want {
		t.Fatalf("ManifestPath = %q, want %q", got, want)
	}
}

func TestListProfiles(t *testing.T) {
	workspace := t.TempDir()
	cfg, err := Load(workspace)
	if err != nil {
		t.Fatal(err)
	}

	names, err := cfg.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles on missing root: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no profiles, got %v", names)
	}

	for _, profile := range []string{"staging", "prod"} {
		dir := cfg.ProfileDir(profile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("profile: "+profile+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// A directory without a manifest is not a profile.
	if err := os.MkdirAll(cfg.ProfileDir("scratch"), 0o755); err != nil {
		t.Fatal(err)
	}

	names, err = cfg.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "prod" || names[1] != "staging" {
		t.Fatalf("unexpected profile list: %v", names)
	}
}
