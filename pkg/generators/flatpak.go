package generators

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// flatpakManifest is the flatpak-builder manifest generated per run.
type flatpakManifest struct {
	AppID          string          `json:"app-id"`
	Branch         string          `json:"branch"`
	Runtime        string          `json:"runtime"`
	RuntimeVersion string          `json:"runtime-version"`
	SDK            string          `json:"sdk"`
	Command        string          `json:"command"`
	Modules        []flatpakModule `json:"modules"`
}

type flatpakModule struct {
	Name          string          `json:"name"`
	Buildsystem   string          `json:"buildsystem"`
	BuildCommands []string        `json:"build-commands"`
	Sources       []flatpakSource `json:"sources"`
}

type flatpakSource struct {
	Type         string `json:"type"`
	Path         string `json:"path"`
	DestFilename string `json:"dest-filename"`
}

// FlatpakGenerator builds and installs a flatpak bundle: every staged file
// becomes a uniquely named manifest source with a matching install
// command, then flatpak-builder, remote-add and install run in sequence.
type FlatpakGenerator struct{}

// Name implements Generator.
func (g *FlatpakGenerator) Name() string { return "flatpak" }

// Run implements Generator.
func (g *FlatpakGenerator) Run(ctx context.Context, gctx *Context) error {
	logger := logging.GetLogger("generators.flatpak")

	work, err := gctx.tempStagingDir()
	if err != nil {
		return err
	}
	defer func() {
		_ = gctx.Fs.RemoveAll(work)
	}()

	staging := filepath.Join(work, "root")
	if err := gctx.stage(staging); err != nil {
		return err
	}
	// Inside the sandbox the application is always mounted at /app.
	if err := gctx.writeLauncher(staging, "/app", ""); err != nil {
		return err
	}

	manifestPath, err := g.writeManifest(gctx, work, staging)
	if err != nil {
		return err
	}

	repo := filepath.Join(work, "repo")
	buildDir := filepath.Join(work, "build")
	buildCmd := execx.Cmd{
		Name: "flatpak-builder",
		Args: []string{"--force-clean", "--repo=" + repo, buildDir, manifestPath},
	}
	if _, err := gctx.Runner.Run(ctx, buildCmd); err != nil {
		return err
	}

	remote := gctx.Config.Name + "-repo"
	remoteCmd := execx.Cmd{
		Name: "flatpak",
		Args: []string{"remote-add", "--user", "--no-gpg-verify", remote, repo},
	}
	if out, err := gctx.Runner.Run(ctx, remoteCmd); err != nil {
		// A remote left behind by an earlier run is fine; the repo path
		// is the same.
		if !strings.Contains(out, "already exists") {
			return err
		}
		logger.Debug().Str("remote", remote).Msg("Remote already exists, reusing it")
	}

	installCmd := execx.Cmd{
		Name: "flatpak",
		Args: []string{"install", "--user", "-y", "--reinstall", remote, gctx.Config.Flatpak.AppID},
	}
	if _, err := gctx.Runner.Run(ctx, installCmd); err != nil {
		return err
	}

	logger.Info().Str("app-id", gctx.Config.Flatpak.AppID).Msg("Deployed flatpak bundle")
	return nil
}

// writeManifest lists every staged file as a file source plus an install
// command recreating the staged layout under /app.
func (g *FlatpakGenerator) writeManifest(gctx *Context, work, staging string) (string, error) {
	module := flatpakModule{
		Name:        gctx.Config.Name,
		Buildsystem: "simple",
	}

	err := afero.Walk(gctx.Fs, staging, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "walking %s", path)
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staging, path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "resolving %s", path)
		}
		name := fmt.Sprintf("source-%d", len(module.Sources))
		module.Sources = append(module.Sources, flatpakSource{
			Type:         "file",
			Path:         path,
			DestFilename: name,
		})
		module.BuildCommands = append(module.BuildCommands,
			fmt.Sprintf("install -Dm755 %s /app/%s", name, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return "", err
	}

	manifest := flatpakManifest{
		AppID:          gctx.Config.Flatpak.AppID,
		Branch:         gctx.Config.Flatpak.Branch,
		Runtime:        gctx.Config.Flatpak.Runtime,
		RuntimeVersion: gctx.Config.Flatpak.RuntimeVersion,
		SDK:            gctx.Config.Flatpak.SDK,
		Command:        gctx.launcherName(),
		Modules:        []flatpakModule{module},
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "encoding flatpak manifest")
	}

	manifestPath := filepath.Join(work, gctx.Config.Flatpak.AppID+".json")
	if err := writeFsFile(gctx.Fs, manifestPath, data, 0o644); err != nil {
		return "", err
	}
	return manifestPath, nil
}
