// Package paths provides centralized path handling for conan-deploy-tool.
// It implements XDG Base Directory specification compliance for the shared
// caches (dependency manifests and downloaded packaging tools).
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvCacheDir overrides the XDG cache directory for conan-deploy-tool
	EnvCacheDir = "CONAN_DEPLOY_CACHE_DIR"
)

// Cache directory layout
const (
	// CacheDirName is the directory name for conan-deploy-tool files
	CacheDirName = "conan-deploy-tool"

	// ToolsDirName is the subdirectory for downloaded packaging tools
	ToolsDirName = "tools"

	// ManifestsDirName is the subdirectory for cached dependency manifests
	ManifestsDirName = "manifests"
)

// Cache locates the shared cache area. Downloaded tools are keyed by
// versioned filenames and manifests by a content hash, so stale entries are
// never picked up after a version or recipe change.
type Cache struct {
	Root string
}

// NewCache returns the cache rooted at CONAN_DEPLOY_CACHE_DIR if set,
// otherwise under the XDG cache home.
func NewCache() Cache {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return Cache{Root: dir}
	}
	return Cache{Root: filepath.Join(xdg.CacheHome, CacheDirName)}
}

// ToolsDir returns the directory holding downloaded packaging tools.
func (c Cache) ToolsDir() string {
	return filepath.Join(c.Root, ToolsDirName)
}

// ToolPath returns the cache location for a downloaded tool. The filename
// must carry the tool version (e.g. "makeself-2.5.0.run").
func (c Cache) ToolPath(filename string) string {
	return filepath.Join(c.ToolsDir(), filename)
}

// ManifestsDir returns the directory holding cached dependency manifests.
func (c Cache) ManifestsDir() string {
	return filepath.Join(c.Root, ManifestsDirName)
}

// ManifestPath returns the cache location for a dependency manifest keyed
// by the hash of the project's conanfile.
func (c Cache) ManifestPath(key string) string {
	return filepath.Join(c.ManifestsDir(), "conanbuildinfo-"+key+".json")
}
