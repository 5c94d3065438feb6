package vendoring

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/noders-team/go-weather-api/internal/protoschema"
	"github.com/noders-team/go-weather-api/internal/registry"
	"github.com/noders-team/go-weather-api/pkg/model"
)

// FindingKind classifies a check finding.
type FindingKind string

const (
	// FindingDrift: the vendored hash matches no current upstream version.
	// A warning; maintainers should re-vendor or revert to an external
	// reference.
	FindingDrift FindingKind = "drift"
	// FindingOriginMismatch: the recorded origin version no longer
	// reproduces the recorded hash. Upstream history moved under us.
	FindingOriginMismatch FindingKind = "origin_mismatch"
	// FindingLocalTamper: the vendored file on disk no longer parses to the
	// locked hash, or is gone.
	FindingLocalTamper FindingKind = "local_tamper"
)

// Finding is one problem discovered by Check.
type Finding struct {
	Kind       FindingKind
	Package    string
	Definition string
	Detail     string
}

// Fatal reports whether the finding should fail the build. Drift alone is
// only a warning.
func (f Finding) Fatal() bool {
	return f.Kind != FindingDrift
}

// CheckReport collects the findings of one drift check.
type CheckReport struct {
	Findings []Finding
}

func (r *CheckReport) Clean() bool {
	return len(r.Findings) == 0
}

func (r *CheckReport) Fatal() bool {
	for _, f := range r.Findings {
		if f.Fatal() {
			return true
		}
	}
	return false
}

// Check verifies every lock entry three ways: the vendored file on disk
// still parses to the locked hash, the recorded origin version still
// reproduces that hash, and at least one current upstream version does.
func Check(baseDir string, manifest *model.Manifest, lock *model.Lockfile, reg registry.Registry) (*CheckReport, error) {
	report := &CheckReport{}

	for _, entry := range lock.Entries {
		checkLocal(baseDir, manifest.ProtoRoot, entry, report)

		originVersion, err := semver.NewVersion(entry.OriginVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid origin version '%s' in lock entry for %s.%s: %w",
				entry.OriginVersion, entry.Package, entry.Definition, err)
		}

		versions, err := reg.Versions(entry.Package)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s.%s: %w", entry.Package, entry.Definition, err)
		}

		originOK := false
		matchesAny := false
		for _, v := range versions {
			defs, err := reg.Definitions(entry.Package, v)
			if err != nil {
				return nil, fmt.Errorf("failed to check %s.%s at %s: %w", entry.Package, entry.Definition, v, err)
			}

			e, found := defs[entry.Definition]
			if !found {
				continue
			}
			hash, err := protoschema.Hash(e.Definition)
			if err != nil {
				return nil, err
			}
			if hash != entry.ContentHash {
				continue
			}

			matchesAny = true
			if v.Equal(originVersion) {
				originOK = true
			}
		}

		if !originOK {
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingOriginMismatch,
				Package:    entry.Package,
				Definition: entry.Definition,
				Detail: fmt.Sprintf("origin %s@%s no longer reproduces hash %s",
					entry.Package, entry.OriginVersion, entry.ContentHash),
			})
		}
		if !matchesAny {
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingDrift,
				Package:    entry.Package,
				Definition: entry.Definition,
				Detail: fmt.Sprintf("vendored copy of %s matches no current version of %s; re-vendor or revert to an external reference",
					entry.Definition, entry.Package),
			})
		}
	}

	return report, nil
}

func checkLocal(baseDir, protoRoot string, entry model.LockEntry, report *CheckReport) {
	path := filepath.Join(baseDir, protoRoot, filepath.FromSlash(entry.File))

	if _, err := os.Stat(path); err != nil {
		report.Findings = append(report.Findings, Finding{
			Kind:       FindingLocalTamper,
			Package:    entry.Package,
			Definition: entry.Definition,
			Detail:     fmt.Sprintf("vendored file '%s' is missing", entry.File),
		})
		return
	}

	file, err := protoschema.ParseFile(path)
	if err != nil {
		report.Findings = append(report.Findings, Finding{
			Kind:       FindingLocalTamper,
			Package:    entry.Package,
			Definition: entry.Definition,
			Detail:     fmt.Sprintf("vendored file '%s' does not parse: %v", entry.File, err),
		})
		return
	}

	def, ok := file.DefinitionsByName()[entry.Definition]
	if !ok {
		report.Findings = append(report.Findings, Finding{
			Kind:       FindingLocalTamper,
			Package:    entry.Package,
			Definition: entry.Definition,
			Detail:     fmt.Sprintf("vendored file '%s' no longer declares %s", entry.File, entry.Definition),
		})
		return
	}

	hash, err := protoschema.Hash(def)
	if err != nil || hash != entry.ContentHash {
		report.Findings = append(report.Findings, Finding{
			Kind:       FindingLocalTamper,
			Package:    entry.Package,
			Definition: entry.Definition,
			Detail:     fmt.Sprintf("vendored file '%s' hashes to a different shape than the lock entry", entry.File),
		})
	}
}
