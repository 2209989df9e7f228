// Package testutil provides shared fakes and helpers for tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/SSE4/conan-deploy-tool/pkg/execx"
)

// RecordingRunner implements execx.Runner. It records every command and
// delegates to an optional Handler for output and side effects.
type RecordingRunner struct {
	Commands []execx.Cmd
	Handler  func(cmd execx.Cmd) (string, error)
}

// Run implements execx.Runner.
func (r *RecordingRunner) Run(_ context.Context, cmd execx.Cmd) (string, error) {
	r.Commands = append(r.Commands, cmd)
	if r.Handler != nil {
		return r.Handler(cmd)
	}
	return "", nil
}

// FakeFetcher implements fetch.Fetcher by writing a placeholder file and
// recording the requested URLs.
type FakeFetcher struct {
	Fs   afero.Fs
	URLs []string
}

// Download implements fetch.Fetcher.
func (f *FakeFetcher) Download(_ context.Context, url, dest string, mode os.FileMode) error {
	f.URLs = append(f.URLs, url)
	if exists, _ := afero.Exists(f.Fs, dest); exists {
		return nil
	}
	return afero.WriteFile(f.Fs, dest, []byte("fake download: "+url), mode)
}

// WriteFiles creates every path/content pair on the filesystem, creating
// parent directories as needed.
func WriteFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}
