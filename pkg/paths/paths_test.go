package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SSE4/conan-deploy-tool/pkg/paths"
)

func TestNewCache_EnvOverride(t *testing.T) {
	t.Setenv(paths.EnvCacheDir, "/custom/cache")

	cache := paths.NewCache()
	assert.Equal(t, "/custom/cache", cache.Root)
}

func TestNewCache_DefaultUnderXDG(t *testing.T) {
	t.Setenv(paths.EnvCacheDir, "")

	cache := paths.NewCache()
	assert.Equal(t, paths.CacheDirName, filepath.Base(cache.Root))
}

func TestCacheLayout(t *testing.T) {
	cache := paths.Cache{Root: "/cache"}

	assert.Equal(t, "/cache/tools/makeself-2.5.0.run", cache.ToolPath("makeself-2.5.0.run"))
	assert.Equal(t, "/cache/manifests/conanbuildinfo-abc123.json", cache.ManifestPath("abc123"))
}
