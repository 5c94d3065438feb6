// Package registry reads version metadata and schema sources of external
// shared-schema packages from a filesystem layout of
// <root>/<package>/<version>/*.proto.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/noders-team/go-weather-api/internal/protoschema"
)

// Registry exposes the versions of an origin package and the definitions
// each version provides.
type Registry interface {
	// Versions lists the available versions of a package in ascending order.
	Versions(pkg string) ([]*semver.Version, error)
	// Definitions loads all top-level definitions a package provides at a
	// version, keyed by definition name. Values carry the source file the
	// definition came from.
	Definitions(pkg string, version *semver.Version) (map[string]Entry, error)
}

// Entry is one definition found in a registry package version.
type Entry struct {
	Definition *protoschema.Definition
	File       string
}

// FS is a filesystem-backed Registry.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (r *FS) Versions(pkg string) ([]*semver.Version, error) {
	dir := filepath.Join(r.root, pkg)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry package '%s': %w", pkg, err)
	}

	var versions []*semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.NewVersion(e.Name())
		if err != nil {
			log.Warn().Msgf("skipping non-semver directory '%s' in package %s", e.Name(), pkg)
			continue
		}
		versions = append(versions, v)
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("no versions found for package '%s' in registry", pkg)
	}

	sort.Sort(semver.Collection(versions))
	return versions, nil
}

func (r *FS) Definitions(pkg string, version *semver.Version) (map[string]Entry, error) {
	dir := filepath.Join(r.root, pkg, version.Original())

	var protoFiles []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".proto") {
			protoFiles = append(protoFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s@%s: %w", pkg, version, err)
	}

	out := make(map[string]Entry)
	for _, path := range protoFiles {
		file, err := protoschema.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s@%s: %w", pkg, version, err)
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		for _, def := range file.Definitions {
			if prev, ok := out[def.Name]; ok {
				return nil, fmt.Errorf("definition '%s' declared in both %s and %s of %s@%s",
					def.Name, prev.File, rel, pkg, version)
			}
			out[def.Name] = Entry{Definition: def, File: rel}
		}
	}

	return out, nil
}

// IntroductionVersion returns the earliest version of pkg whose sources
// contain the named definition. ok is false when no reachable version
// provides it.
func IntroductionVersion(r Registry, pkg, definition string) (v *semver.Version, ok bool, err error) {
	versions, err := r.Versions(pkg)
	if err != nil {
		return nil, false, err
	}

	for _, version := range versions {
		defs, err := r.Definitions(pkg, version)
		if err != nil {
			return nil, false, err
		}
		if _, found := defs[definition]; found {
			return version, true, nil
		}
	}

	return nil, false, nil
}

// NewestProviding returns the newest version of pkg that still provides the
// named definition, together with its entry. ok is false when no version
// provides it.
func NewestProviding(r Registry, pkg, definition string) (v *semver.Version, entry Entry, ok bool, err error) {
	versions, err := r.Versions(pkg)
	if err != nil {
		return nil, Entry{}, false, err
	}

	for i := len(versions) - 1; i >= 0; i-- {
		defs, err := r.Definitions(pkg, versions[i])
		if err != nil {
			return nil, Entry{}, false, err
		}
		if e, found := defs[definition]; found {
			return versions[i], e, true, nil
		}
	}

	return nil, Entry{}, false, nil
}
