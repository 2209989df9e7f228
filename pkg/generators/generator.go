// Package generators implements the output-format backends. Every
// generator stages the same dependency tree and launcher; they differ only
// in the final packaging step and artifact naming.
package generators

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/config"
	"github.com/SSE4/conan-deploy-tool/pkg/deploy"
	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/fetch"
	"github.com/SSE4/conan-deploy-tool/pkg/paths"
)

// Context carries the per-run state shared by all generators. The
// dependency data is resolved once and read-only; each generator stages
// its own tree from it.
type Context struct {
	Config  *config.Config
	Dirs    deploy.RelativeDirs
	CopyMap deploy.CopyMap

	Fs      afero.Fs
	Runner  execx.Runner
	Fetcher fetch.Fetcher
	Cache   paths.Cache

	// ProjectDir is the directory holding the conanfile and the built
	// executable; OutputDir is where artifacts are written.
	ProjectDir string
	OutputDir  string
}

// Generator is one packaging strategy.
type Generator interface {
	// Name returns the generator name used on the command line.
	Name() string

	// Run stages the bundle and produces the artifact.
	Run(ctx context.Context, gctx *Context) error
}

// New returns the generator registered under name.
func New(name string) (Generator, error) {
	switch name {
	case "dir":
		return &DirGenerator{}, nil
	case "zip", "tar", "gztar", "bztar", "xztar":
		return &ArchiveGenerator{format: name}, nil
	case "makeself":
		return &MakeselfGenerator{}, nil
	case "appimage":
		return &AppImageGenerator{}, nil
	case "flatpak":
		return &FlatpakGenerator{}, nil
	default:
		return nil, errors.Newf(errors.ErrGeneratorUnknown,
			"unknown generator %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}

// Names lists every registered generator name.
func Names() []string {
	return []string{"appimage", "bztar", "dir", "flatpak", "gztar", "makeself", "tar", "xztar", "zip"}
}

// executableSource returns the absolute path of the project's built binary.
func (c *Context) executableSource() string {
	if filepath.IsAbs(c.Config.Executable) {
		return c.Config.Executable
	}
	return filepath.Join(c.ProjectDir, c.Config.Executable)
}

// launcherName is the file name of the generated entry-point script.
func (c *Context) launcherName() string {
	return c.Config.Name + ".sh"
}

// executableRel is the bundle-relative path of the staged executable.
func (c *Context) executableRel() string {
	return path.Base(filepath.ToSlash(c.Config.Executable))
}

// stage copies the dependency trees and the project executable into dest.
func (c *Context) stage(dest string) error {
	stager := deploy.NewStager(c.Fs)
	if err := stager.Stage(c.CopyMap, dest); err != nil {
		return err
	}
	return stager.InstallExecutable(c.executableSource(), dest)
}

// writeLauncher emits the entry-point script into dir with the given base
// variable reference.
func (c *Context) writeLauncher(dir, baseVar, baseInit string) error {
	opts := deploy.LauncherOptions{
		LibDirs:    c.Dirs.Lib,
		BinDirs:    c.Dirs.Bin,
		BaseVar:    baseVar,
		BaseInit:   baseInit,
		Executable: c.executableRel(),
	}
	return deploy.WriteLauncher(c.Fs, filepath.Join(dir, c.launcherName()), opts)
}

// tempStagingDir creates a scoped staging directory. Callers must remove
// it on every path; only the dir generator persists its tree, and it does
// not stage through here.
func (c *Context) tempStagingDir() (string, error) {
	dir, err := afero.TempDir(c.Fs, "", "conan-deploy-")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrStaging, "creating staging directory")
	}
	return dir, nil
}

// selfDirInit resolves the directory the launcher lives in at run time.
// Used by the bundles whose base is wherever they were unpacked.
const selfDirInit = `BASEDIR=$(CDPATH= cd -- "$(dirname -- "$0")" && pwd)`

// selfDirVar is the base variable reference matching selfDirInit.
const selfDirVar = "$BASEDIR"
