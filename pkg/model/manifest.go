// Package model holds the schema package manifest and the vendor lockfile.
package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// Manifest describes this schema package: its identity and the message
// definitions it requires from external shared-schema packages.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	ProtoRoot    string       `json:"proto_root"`
	Dependencies []Dependency `json:"dependencies"`
}

// Dependency names an origin package, the version range the downstream
// consumer accepts for it, and the definitions required from it.
type Dependency struct {
	Package       string   `json:"package"`
	AcceptedRange string   `json:"accepted_range"`
	Definitions   []string `json:"definitions"`
}

// Constraint parses the dependency's accepted version range.
func (d Dependency) Constraint() (*semver.Constraints, error) {
	c, err := semver.NewConstraint(d.AcceptedRange)
	if err != nil {
		return nil, fmt.Errorf("invalid accepted range '%s' for package %s: %w", d.AcceptedRange, d.Package, err)
	}
	return c, nil
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest '%s': %w", path, err)
	}

	manifest := &Manifest{}
	if err := json.Unmarshal(raw, manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest '%s': %w", path, err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest '%s': %w", path, err)
	}

	return manifest, nil
}

// Validate checks the manifest for the fields every resolution needs.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("invalid package version '%s': %w", m.Version, err)
	}
	if m.ProtoRoot == "" {
		return fmt.Errorf("proto_root is required")
	}

	seen := make(map[string]bool)
	for _, dep := range m.Dependencies {
		if dep.Package == "" {
			return fmt.Errorf("dependency with empty package name")
		}
		if seen[dep.Package] {
			return fmt.Errorf("duplicate dependency on package '%s'", dep.Package)
		}
		seen[dep.Package] = true

		if len(dep.Definitions) == 0 {
			return fmt.Errorf("dependency on '%s' names no definitions", dep.Package)
		}
		if _, err := dep.Constraint(); err != nil {
			return err
		}
	}

	return nil
}
