package generators

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// AppImageKit release providing AppRun and appimagetool. Cached filenames
// carry the release number, so bumping it re-downloads both tools.
const (
	appImageKitRelease = "13"
	appImageArch       = "x86_64"

	appRunURL = "https://github.com/AppImage/AppImageKit/releases/download/" +
		appImageKitRelease + "/AppRun-" + appImageArch
	appImageToolURL = "https://github.com/AppImage/AppImageKit/releases/download/" +
		appImageKitRelease + "/appimagetool-" + appImageArch + ".AppImage"
)

// AppImageGenerator builds an AppImage: the dependency tree and launcher
// are staged under usr/bin of an AppDir, AppRun and desktop metadata are
// added, and appimagetool packs the result.
type AppImageGenerator struct{}

// Name implements Generator.
func (g *AppImageGenerator) Name() string { return "appimage" }

// Run implements Generator.
func (g *AppImageGenerator) Run(ctx context.Context, gctx *Context) error {
	logger := logging.GetLogger("generators.appimage")

	appDir, err := gctx.tempStagingDir()
	if err != nil {
		return err
	}
	defer func() {
		_ = gctx.Fs.RemoveAll(appDir)
	}()

	binDir := filepath.Join(appDir, "usr", "bin")
	if err := gctx.stage(binDir); err != nil {
		return err
	}
	// AppRun exports APPDIR as the mount root before handing over to the
	// desktop entry's Exec, which lives in usr/bin.
	if err := gctx.writeLauncher(binDir, "$APPDIR/usr/bin", ""); err != nil {
		return err
	}

	if err := g.installAppRun(ctx, gctx, appDir); err != nil {
		return err
	}
	if err := g.writeDesktopEntry(gctx, appDir); err != nil {
		return err
	}
	if err := g.writeIcon(gctx, appDir); err != nil {
		return err
	}

	tool := gctx.Cache.ToolPath("appimagetool-" + appImageKitRelease + "-" + appImageArch + ".AppImage")
	if err := gctx.Fetcher.Download(ctx, appImageToolURL, tool, 0o755); err != nil {
		return err
	}

	out := filepath.Join(gctx.OutputDir, gctx.Config.Name+".AppImage")
	cmd := execx.Cmd{
		Name: tool,
		Args: []string{appDir, out},
		Env:  map[string]string{"ARCH": appImageArch},
	}
	if _, err := gctx.Runner.Run(ctx, cmd); err != nil {
		return err
	}

	logger.Info().Str("path", out).Msg("Deployed AppImage bundle")
	return nil
}

func (g *AppImageGenerator) installAppRun(ctx context.Context, gctx *Context, appDir string) error {
	cached := gctx.Cache.ToolPath("AppRun-" + appImageKitRelease + "-" + appImageArch)
	if err := gctx.Fetcher.Download(ctx, appRunURL, cached, 0o755); err != nil {
		return err
	}
	target := filepath.Join(appDir, "AppRun")
	if err := copyFsFile(gctx.Fs, cached, target); err != nil {
		return err
	}
	if err := gctx.Fs.Chmod(target, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "marking %s executable", target)
	}
	return nil
}

func (g *AppImageGenerator) writeDesktopEntry(gctx *Context, appDir string) error {
	name := gctx.Config.Name
	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%s
Icon=%s
Categories=%s
Terminal=true
`, name, gctx.launcherName(), name, gctx.Config.AppImage.Categories)

	return writeFsFile(gctx.Fs, filepath.Join(appDir, name+".desktop"), []byte(entry), 0o644)
}

// writeIcon places the configured icon into the AppDir, or a generated
// placeholder when none is configured, since appimagetool requires one.
func (g *AppImageGenerator) writeIcon(gctx *Context, appDir string) error {
	target := filepath.Join(appDir, gctx.Config.Name+".png")
	if gctx.Config.Icon != "" {
		src := gctx.Config.Icon
		if !filepath.IsAbs(src) {
			src = filepath.Join(gctx.ProjectDir, src)
		}
		return copyFsFile(gctx.Fs, src, target)
	}

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Gray{Y: 0x80})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errors.Wrap(err, errors.ErrStaging, "encoding placeholder icon")
	}
	return writeFsFile(gctx.Fs, target, buf.Bytes(), 0o644)
}
