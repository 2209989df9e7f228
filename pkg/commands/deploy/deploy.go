// Package deploy wires the deployment pipeline together: configuration,
// dependency resolution, directory derivation and the requested format
// generators.
package deploy

import (
	"context"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/config"
	"github.com/SSE4/conan-deploy-tool/pkg/deploy"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/fetch"
	"github.com/SSE4/conan-deploy-tool/pkg/generators"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
	"github.com/SSE4/conan-deploy-tool/pkg/manifest"
	"github.com/SSE4/conan-deploy-tool/pkg/paths"
)

// Options defines the options for the Deploy command.
type Options struct {
	// ConfigPath is the deploy configuration file.
	ConfigPath string
	// Generators are the requested output formats, run in order.
	Generators []string
	// ProjectDir holds the conanfile and built executable.
	ProjectDir string
	// OutputDir is where artifacts are written.
	OutputDir string

	// Fs, Runner, Fetcher and Cache default to their production
	// implementations when unset; tests inject fakes here.
	Fs      afero.Fs
	Runner  execx.Runner
	Fetcher fetch.Fetcher
	Cache   *paths.Cache
}

// Deploy resolves the project's dependencies once and runs every requested
// generator against the shared result, strictly sequentially. The first
// failing generator aborts the batch.
func Deploy(ctx context.Context, opts Options) error {
	log := logging.GetLogger("commands.deploy")

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	runner := opts.Runner
	if runner == nil {
		runner = execx.NewRunner()
	}
	var fetcher fetch.Fetcher = opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient(fsys)
	}
	var cache paths.Cache
	if opts.Cache != nil {
		cache = *opts.Cache
	} else {
		cache = paths.NewCache()
	}

	// Validate the requested names before doing any work so a typo in the
	// second generator does not waste a conan run.
	requested := make([]generators.Generator, 0, len(opts.Generators))
	for _, name := range opts.Generators {
		gen, err := generators.New(name)
		if err != nil {
			return err
		}
		requested = append(requested, gen)
	}

	cfg, err := config.Load(fsys, opts.ConfigPath)
	if err != nil {
		return err
	}

	resolver := manifest.NewResolver(fsys, runner, cache)
	deps, err := resolver.Resolve(ctx, opts.ProjectDir)
	if err != nil {
		return err
	}

	dirs, copyMap, err := deploy.DeriveDirs(fsys, deps)
	if err != nil {
		return err
	}

	gctx := &generators.Context{
		Config:     cfg,
		Dirs:       dirs,
		CopyMap:    copyMap,
		Fs:         fsys,
		Runner:     runner,
		Fetcher:    fetcher,
		Cache:      cache,
		ProjectDir: opts.ProjectDir,
		OutputDir:  opts.OutputDir,
	}

	for _, gen := range requested {
		log.Info().Str("generator", gen.Name()).Msg("Running generator")
		if err := gen.Run(ctx, gctx); err != nil {
			return err
		}
	}

	log.Info().Int("generators", len(requested)).Msg("Deployment finished")
	return nil
}
