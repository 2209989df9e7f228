// Package manifest invokes conan and parses the JSON build-info it
// produces into dependency records.
package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
	"github.com/SSE4/conan-deploy-tool/pkg/paths"
)

// BuildInfoFileName is the manifest file conan's json generator writes.
const BuildInfoFileName = "conanbuildinfo.json"

// conanfiles are checked in order when computing the manifest cache key.
var conanFileNames = []string{"conanfile.py", "conanfile.txt"}

// Dependency is one resolved package from the conan build info. Read-only
// after resolution.
type Dependency struct {
	Name     string   `json:"name"`
	RootPath string   `json:"rootpath"`
	LibPaths []string `json:"lib_paths"`
	BinPaths []string `json:"bin_paths"`
}

type buildInfo struct {
	Dependencies []Dependency `json:"dependencies"`
}

// Parse decodes a conan build-info JSON document.
func Parse(data []byte) ([]Dependency, error) {
	var info buildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestParse, "parsing conan build info")
	}
	return info.Dependencies, nil
}

// Resolver produces the dependency list for a project by running
// `conan install`, caching the raw JSON keyed by the conanfile hash so
// repeated runs against an unchanged recipe skip the conan invocation.
type Resolver struct {
	fs     afero.Fs
	runner execx.Runner
	cache  paths.Cache
	logger zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(fsys afero.Fs, runner execx.Runner, cache paths.Cache) *Resolver {
	return &Resolver{
		fs:     fsys,
		runner: runner,
		cache:  cache,
		logger: logging.GetLogger("manifest"),
	}
}

// Resolve returns the dependencies of the project in projectDir. A conan
// failure or unparsable output is fatal; there is no retry.
func (r *Resolver) Resolve(ctx context.Context, projectDir string) ([]Dependency, error) {
	key := r.cacheKey(projectDir)

	if key != "" {
		if deps, ok := r.loadCached(key); ok {
			return deps, nil
		}
	}

	data, err := r.invokeConan(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	deps, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if key != "" {
		r.storeCached(key, data)
	}
	return deps, nil
}

// cacheKey hashes the project's conanfile. An empty key disables caching.
func (r *Resolver) cacheKey(projectDir string) string {
	for _, name := range conanFileNames {
		data, err := afero.ReadFile(r.fs, filepath.Join(projectDir, name))
		if err != nil {
			continue
		}
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
	return ""
}

func (r *Resolver) loadCached(key string) ([]Dependency, bool) {
	path := r.cache.ManifestPath(key)
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, false
	}
	deps, err := Parse(data)
	if err != nil {
		// Stale or corrupt cache entry; fall back to a fresh resolve.
		r.logger.Warn().Err(err).Str("path", path).Msg("Ignoring unreadable manifest cache entry")
		return nil, false
	}
	r.logger.Debug().Str("path", path).Msg("Using cached dependency manifest")
	return deps, true
}

func (r *Resolver) storeCached(key string, data []byte) {
	path := r.cache.ManifestPath(key)
	if err := r.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to create manifest cache directory")
		return
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to write manifest cache entry")
	}
}

func (r *Resolver) invokeConan(ctx context.Context, projectDir string) ([]byte, error) {
	installDir, err := afero.TempDir(r.fs, "", "conan-install-")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrResolution, "creating conan install folder")
	}
	defer func() {
		_ = r.fs.RemoveAll(installDir)
	}()

	cmd := execx.Cmd{
		Name: "conan",
		Args: []string{"install", ".", "-g", "json", "-if", installDir},
		Dir:  projectDir,
	}
	if _, err := r.runner.Run(ctx, cmd); err != nil {
		return nil, errors.Wrap(err, errors.ErrResolution, "resolving dependencies with conan")
	}

	data, err := afero.ReadFile(r.fs, filepath.Join(installDir, BuildInfoFileName))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrResolution,
			"conan did not produce %s", BuildInfoFileName)
	}
	return data, nil
}
