package generators

import (
	"context"
	"path/filepath"

	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// DirGenerator deploys into a plain directory named after the artifact.
// Unlike every other generator the staged tree IS the deliverable, so it
// is deliberately never cleaned up.
type DirGenerator struct{}

// Name implements Generator.
func (g *DirGenerator) Name() string { return "dir" }

// Run implements Generator.
func (g *DirGenerator) Run(ctx context.Context, gctx *Context) error {
	logger := logging.GetLogger("generators.dir")

	dest := filepath.Join(gctx.OutputDir, gctx.Config.Name)
	if err := gctx.stage(dest); err != nil {
		return err
	}
	if err := gctx.writeLauncher(dest, selfDirVar, selfDirInit); err != nil {
		return err
	}

	logger.Info().Str("path", dest).Msg("Deployed directory bundle")
	return nil
}
