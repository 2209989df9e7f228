package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/SSE4/conan-deploy-tool/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/SSE4/conan-deploy-tool/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/SSE4/conan-deploy-tool/internal/version.Date={{.Date}}
)
