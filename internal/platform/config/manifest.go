package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrManifestPathRequired indicates LoadManifest was called without a path.
var ErrManifestPathRequired = errors.New("manifest path is required")

// ModuleManifest selects which compiled-in feature modules are loaded and in
// which order they are scanned. Later modules win bindable name collisions.
type ModuleManifest struct {
	Modules []ManifestModule `yaml:"modules"`
}

// ManifestModule is one manifest entry.
type ManifestModule struct {
	Name     string `yaml:"name"`
	Disabled bool   `yaml:"disabled"`
}

// Enabled returns enabled module names in manifest order, trimmed and with
// duplicates removed. A nil manifest returns nil so callers can fall back to
// their defaults.
func (m *ModuleManifest) Enabled() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(m.Modules))
	names := make([]string, 0, len(m.Modules))
	for _, entry := range m.Modules {
		name := strings.TrimSpace(entry.Name)
		if name == "" || entry.Disabled {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// ParseManifest decodes a YAML module manifest.
func ParseManifest(data []byte) (*ModuleManifest, error) {
	var manifest ModuleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse module manifest: %w", err)
	}
	return &manifest, nil
}

// LoadManifest reads and decodes the YAML module manifest at path.
func LoadManifest(path string) (*ModuleManifest, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrManifestPathRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module manifest: %w", err)
	}
	return ParseManifest(data)
}
