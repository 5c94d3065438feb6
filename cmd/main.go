package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noders-team/go-weather-api/internal/registry"
	"github.com/noders-team/go-weather-api/pkg/model"
	"github.com/noders-team/go-weather-api/pkg/vendoring"
)

type config struct {
	Manifest  string `env:"PROTOVENDOR_MANIFEST" envDefault:"schema.manifest.json"`
	Registry  string `env:"PROTOVENDOR_REGISTRY" envDefault:"registry"`
	Lock      string `env:"PROTOVENDOR_LOCK" envDefault:"vendor.lock.json"`
	OriginRef string `env:"PROTOVENDOR_ORIGIN_REF"`
}

var (
	cfg     config
	baseDir string
	debug   bool
	dryRun  bool
)

func main() {
	if err := env.Parse(&cfg); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:   "protovendor",
		Short: "Schema dependency vendoring tool for the weather API package",
		Long: `protovendor resolves this schema package's external message dependencies.

For each definition required from a shared-schema package it decides, from the
version that introduces the definition and the downstream consumer's accepted
version range, whether to keep an external reference or to vendor a local copy
with full provenance. Vendored copies are tracked in a lockfile and checked
for drift against the registry.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "path to the schema package manifest (relative paths join --dir)")
	rootCmd.PersistentFlags().StringVar(&cfg.Registry, "registry", cfg.Registry, "path to the shared-schema registry root (relative paths join --dir)")
	rootCmd.PersistentFlags().StringVar(&cfg.Lock, "lock", cfg.Lock, "path to the vendor lockfile (relative paths join --dir)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", ".", "base directory of the schema package")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve external definitions, writing vendored copies and the lockfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve()
		},
	}
	resolveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print decisions without writing anything")
	resolveCmd.Flags().StringVar(&cfg.OriginRef, "origin-ref", cfg.OriginRef, "registry commit ref to record as provenance")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify vendored copies against the lockfile and the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck()
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the resolution decision for every external definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	rootCmd.AddCommand(resolveCmd, checkCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// resolvePath anchors relative manifest/registry/lock paths at the schema
// package's base directory, so --dir moves the whole invocation together.
func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func newResolver() (*vendoring.Resolver, *model.Manifest, error) {
	manifest, err := model.LoadManifest(resolvePath(baseDir, cfg.Manifest))
	if err != nil {
		return nil, nil, err
	}

	opts := []vendoring.Option{vendoring.WithClock(time.Now)}
	if cfg.OriginRef != "" {
		opts = append(opts, vendoring.WithOriginRef(cfg.OriginRef))
	}

	reg := registry.NewFS(resolvePath(baseDir, cfg.Registry))
	return vendoring.NewResolver(manifest, reg, opts...), manifest, nil
}

func runResolve() error {
	resolver, _, err := newResolver()
	if err != nil {
		return err
	}

	if dryRun {
		resolutions, err := resolver.Resolve()
		if err != nil {
			return err
		}
		printResolutions(resolutions)
		return nil
	}

	lock, resolutions, err := resolver.Run(baseDir)
	if err != nil {
		return err
	}

	if err := lock.Save(resolvePath(baseDir, cfg.Lock)); err != nil {
		return err
	}

	printResolutions(resolutions)
	log.Info().Msgf("resolution complete: %d definitions, %d vendored, lockfile written to %s",
		len(resolutions), len(lock.Entries), cfg.Lock)
	return nil
}

func runCheck() error {
	manifest, err := model.LoadManifest(resolvePath(baseDir, cfg.Manifest))
	if err != nil {
		return err
	}
	lock, err := model.LoadLockfile(resolvePath(baseDir, cfg.Lock))
	if err != nil {
		return err
	}

	report, err := vendoring.Check(baseDir, manifest, lock, registry.NewFS(resolvePath(baseDir, cfg.Registry)))
	if err != nil {
		return err
	}

	for _, f := range report.Findings {
		if f.Fatal() {
			log.Error().Msgf("%s: %s.%s: %s", f.Kind, f.Package, f.Definition, f.Detail)
		} else {
			log.Warn().Msgf("%s: %s.%s: %s", f.Kind, f.Package, f.Definition, f.Detail)
		}
	}

	if report.Fatal() {
		return fmt.Errorf("vendored copies are out of sync, see findings above")
	}
	if report.Clean() {
		log.Info().Msgf("all %d vendored definitions verified against the registry", len(lock.Entries))
	}
	return nil
}

func runStatus() error {
	resolver, _, err := newResolver()
	if err != nil {
		return err
	}

	resolutions, err := resolver.Resolve()
	if err != nil {
		return err
	}

	printResolutions(resolutions)
	return nil
}

func printResolutions(resolutions []vendoring.Resolution) {
	for _, res := range resolutions {
		if res.Decision == vendoring.VendoredCopy {
			fmt.Printf("%-20s %-18s %s (introduced %s, accepted '%s', origin v%s, %s)\n",
				res.Package, res.Definition, res.Decision, res.Introduced, res.AcceptedRange, res.OriginVersion, res.File)
			continue
		}
		fmt.Printf("%-20s %-18s %s (introduced %s, accepted '%s')\n",
			res.Package, res.Definition, res.Decision, res.Introduced, res.AcceptedRange)
	}
}
