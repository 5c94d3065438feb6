// Package vendoring decides, per external message dependency, whether the
// schema package references the definition externally or carries a local
// vendored copy, and keeps the vendor lockfile honest.
package vendoring

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"github.com/noders-team/go-weather-api/internal/protoschema"
	"github.com/noders-team/go-weather-api/internal/registry"
	"github.com/noders-team/go-weather-api/pkg/model"
)

// Decision is the outcome of resolving one external definition.
type Decision int

const (
	ExternalReference Decision = iota
	VendoredCopy
)

func (d Decision) String() string {
	switch d {
	case ExternalReference:
		return "EXTERNAL_REFERENCE"
	case VendoredCopy:
		return "VENDORED_COPY"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Resolution is the decision for one (dependency, definition) pair. Origin
// fields are populated only for VendoredCopy.
type Resolution struct {
	Package       string
	Definition    string
	Decision      Decision
	Introduced    *semver.Version
	AcceptedRange string
	OriginVersion *semver.Version
	OriginFile    string
	ContentHash   string
	File          string

	definition *protoschema.Definition
}

// Resolver evaluates the manifest's dependencies against a registry.
type Resolver struct {
	manifest  *model.Manifest
	registry  registry.Registry
	now       func() time.Time
	originRef string
	vendorDir string
}

type Option func(*Resolver)

// WithClock fixes the timestamp source used for lock entries.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithOriginRef records a commit ref of the origin registry in vendored
// files and lock entries.
func WithOriginRef(ref string) Option {
	return func(r *Resolver) {
		r.originRef = ref
	}
}

// WithVendorDir overrides the directory under the proto root that holds
// vendored copies. Defaults to "vendor".
func WithVendorDir(dir string) Option {
	return func(r *Resolver) {
		r.vendorDir = dir
	}
}

func NewResolver(manifest *model.Manifest, reg registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		manifest:  manifest,
		registry:  reg,
		now:       time.Now,
		vendorDir: "vendor",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide is the resolution rule: a definition whose introduction version
// lies inside the consumer's accepted range is referenced externally;
// anything else is vendored.
func Decide(introduced *semver.Version, accepted *semver.Constraints) Decision {
	if accepted.Check(introduced) {
		return ExternalReference
	}
	return VendoredCopy
}

// Resolve computes the decision for every (dependency, definition) pair in
// the manifest. It never touches the filesystem, so it backs both dry runs
// and Run. The same inputs always produce the same resolutions.
func (r *Resolver) Resolve() ([]Resolution, error) {
	var out []Resolution

	for _, dep := range r.manifest.Dependencies {
		accepted, err := dep.Constraint()
		if err != nil {
			return nil, err
		}

		for _, name := range dep.Definitions {
			introduced, ok, err := registry.IntroductionVersion(r.registry, dep.Package, name)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s.%s: %w", dep.Package, name, err)
			}
			if !ok {
				return nil, &MissingDefinitionError{Package: dep.Package, Definition: name}
			}

			res := Resolution{
				Package:       dep.Package,
				Definition:    name,
				Decision:      Decide(introduced, accepted),
				Introduced:    introduced,
				AcceptedRange: dep.AcceptedRange,
			}

			if res.Decision == VendoredCopy {
				if err := r.capture(&res); err != nil {
					return nil, err
				}
				log.Info().Msgf("version range conflict: %s.%s introduced at %s, consumer accepts '%s', vendoring copy from %s",
					dep.Package, name, introduced, dep.AcceptedRange, res.OriginVersion)
			} else {
				log.Debug().Msgf("%s.%s introduced at %s fits accepted range '%s', keeping external reference",
					dep.Package, name, introduced, dep.AcceptedRange)
			}

			out = append(out, res)
		}
	}

	return out, nil
}

// capture pins the vendored definition to the newest registry version that
// provides it and records its content hash and target file.
func (r *Resolver) capture(res *Resolution) error {
	origin, entry, ok, err := registry.NewestProviding(r.registry, res.Package, res.Definition)
	if err != nil {
		return fmt.Errorf("failed to capture %s.%s: %w", res.Package, res.Definition, err)
	}
	if !ok {
		return &MissingDefinitionError{Package: res.Package, Definition: res.Definition}
	}

	hash, err := protoschema.Hash(entry.Definition)
	if err != nil {
		return fmt.Errorf("failed to hash %s.%s: %w", res.Package, res.Definition, err)
	}

	res.OriginVersion = origin
	res.OriginFile = entry.File
	res.ContentHash = hash
	res.File = filepath.Join(r.vendorDir, res.Package, snakeCase(res.Definition)+".proto")
	res.definition = entry.Definition
	return nil
}

// Run resolves all dependencies, writes vendored files under the manifest's
// proto root inside baseDir, and returns the lockfile describing them.
func (r *Resolver) Run(baseDir string) (*model.Lockfile, []Resolution, error) {
	resolutions, err := r.Resolve()
	if err != nil {
		return nil, nil, err
	}

	now := r.now().UTC()
	lock := &model.Lockfile{
		Version:     model.LockfileVersion,
		GeneratedAt: now,
	}

	for _, res := range resolutions {
		if res.Decision != VendoredCopy {
			continue
		}

		content, err := protoschema.Render(protoschema.RenderInput{
			Package:       r.vendorPackage(res.Package),
			OriginPackage: res.Package,
			OriginVersion: res.OriginVersion.String(),
			OriginRef:     r.originRef,
			Definitions:   []*protoschema.Definition{res.definition},
		})
		if err != nil {
			return nil, nil, err
		}

		target := filepath.Join(baseDir, r.manifest.ProtoRoot, res.File)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create vendor directory for %s: %w", res.Definition, err)
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return nil, nil, fmt.Errorf("failed to write vendored file '%s': %w", target, err)
		}

		lock.Entries = append(lock.Entries, model.LockEntry{
			Definition:    res.Definition,
			Package:       res.Package,
			OriginVersion: res.OriginVersion.String(),
			OriginFile:    res.OriginFile,
			OriginRef:     r.originRef,
			VendoredAt:    now,
			ContentHash:   res.ContentHash,
			File:          filepath.ToSlash(res.File),
		})

		log.Info().Msgf("vendored %s.%s from v%s into %s", res.Package, res.Definition, res.OriginVersion, res.File)
	}

	return lock, resolutions, nil
}

func (r *Resolver) vendorPackage(originPkg string) string {
	return fmt.Sprintf("%s.vendor.%s", r.manifest.Name, originPkg)
}

func snakeCase(input string) string {
	var b strings.Builder
	for i, r := range input {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
