package generators

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// Makeself release used to build self-extracting installers. The version
// is part of every cache filename so upgrading it here invalidates the
// cache automatically.
const (
	makeselfVersion = "2.5.0"
	makeselfURL     = "https://github.com/megastep/makeself/releases/download/release-" +
		makeselfVersion + "/makeself-" + makeselfVersion + ".run"
)

// MakeselfGenerator packages the staged tree into a self-extracting
// installer using makeself. The makeself distribution is downloaded and
// unpacked into the shared cache on first use.
type MakeselfGenerator struct{}

// Name implements Generator.
func (g *MakeselfGenerator) Name() string { return "makeself" }

// Run implements Generator.
func (g *MakeselfGenerator) Run(ctx context.Context, gctx *Context) error {
	logger := logging.GetLogger("generators.makeself")

	script, err := g.ensureMakeself(ctx, gctx)
	if err != nil {
		return err
	}

	staging, err := gctx.tempStagingDir()
	if err != nil {
		return err
	}
	defer func() {
		_ = gctx.Fs.RemoveAll(staging)
	}()

	if err := gctx.stage(staging); err != nil {
		return err
	}
	if err := gctx.writeLauncher(staging, selfDirVar, selfDirInit); err != nil {
		return err
	}

	out := filepath.Join(gctx.OutputDir, gctx.Config.Name+".run")
	cmd := execx.Cmd{
		Name: script,
		Args: []string{staging, out, gctx.Config.Name, "./" + gctx.launcherName()},
	}
	if _, err := gctx.Runner.Run(ctx, cmd); err != nil {
		return err
	}

	logger.Info().Str("path", out).Msg("Deployed self-extracting installer")
	return nil
}

// ensureMakeself downloads the makeself release archive and extracts it
// into the cache, returning the path of makeself.sh.
func (g *MakeselfGenerator) ensureMakeself(ctx context.Context, gctx *Context) (string, error) {
	runPath := gctx.Cache.ToolPath("makeself-" + makeselfVersion + ".run")
	if err := gctx.Fetcher.Download(ctx, makeselfURL, runPath, 0o755); err != nil {
		return "", err
	}

	extractDir := gctx.Cache.ToolPath("makeself-" + makeselfVersion)
	script := filepath.Join(extractDir, "makeself.sh")
	exists, err := afero.Exists(gctx.Fs, script)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrToolDownload, "checking %s", script)
	}
	if exists {
		return script, nil
	}

	cmd := execx.Cmd{
		Name: runPath,
		Args: []string{"--quiet", "--nox11", "--noexec", "--target", extractDir},
	}
	if _, err := gctx.Runner.Run(ctx, cmd); err != nil {
		return "", err
	}

	exists, err = afero.Exists(gctx.Fs, script)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrToolDownload, "checking %s", script)
	}
	if !exists {
		return "", errors.Newf(errors.ErrToolDownload,
			"makeself extraction did not produce %s", script)
	}
	return script, nil
}
