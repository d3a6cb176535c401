package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile pairs a parsed profile manifest with its on-disk source.
type ManifestFile struct {
	Manifest ProfileManifest
	Path     string
}

// ParseManifestYAML decodes and shape-validates a single manifest payload.
func ParseManifestYAML(data []byte) (ProfileManifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ProfileManifest{}, fmt.Errorf("manifest: payload is empty")
	}
	var man ProfileManifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return ProfileManifest{}, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := man.Validate(); err != nil {
		return ProfileManifest{}, err
	}
	return man.Normalized(), nil
}

// LoadManifestFile reads a YAML manifest from disk and returns the parsed
// profile manifest. Any failure here is a configuration error: the caller is
// expected to halt the run without attempting validation or composition.
func LoadManifestFile(path string) (ManifestFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("manifest: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return ManifestFile{}, fmt.Errorf("manifest: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	man, err := ParseManifestYAML(data)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return ManifestFile{Manifest: man, Path: filepath.Clean(path)}, nil
}
