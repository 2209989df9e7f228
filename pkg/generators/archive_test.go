package generators_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	stdbzip2 "compress/bzip2"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/SSE4/conan-deploy-tool/pkg/generators"
)

func TestArchiveGenerators(t *testing.T) {
	tests := []struct {
		format   string
		artifact string
	}{
		{"zip", "/out/myapp.zip"},
		{"tar", "/out/myapp.tar"},
		{"gztar", "/out/myapp.tar.gz"},
		{"bztar", "/out/myapp.tar.bz2"},
		{"xztar", "/out/myapp.tar.xz"},
	}

	expected := []string{
		"lib/libz.so",
		"lib/libssl.so",
		"bin/openssl",
		"myapp",
		"myapp.sh",
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			gctx, fs, _, _ := newTestContext(t)

			gen, err := generators.New(tt.format)
			require.NoError(t, err)
			require.NoError(t, gen.Run(context.Background(), gctx))

			data, err := afero.ReadFile(fs, tt.artifact)
			require.NoError(t, err)

			var entries []string
			if tt.format == "zip" {
				entries = zipEntries(t, data)
			} else {
				entries = tarEntries(t, data, tt.format)
			}
			for _, name := range expected {
				assert.Contains(t, entries, name)
			}
		})
	}
}

func TestArchiveGenerator_RemovesStagingDir(t *testing.T) {
	gctx, fs, _, _ := newTestContext(t)

	gen, err := generators.New("tar")
	require.NoError(t, err)
	require.NoError(t, gen.Run(context.Background(), gctx))

	// Only the artifact remains in the output dir; the staging tree is a
	// scoped temp dir and must be gone.
	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "myapp.tar", entries[0].Name())
}

func zipEntries(t *testing.T, data []byte) []string {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	return names
}

func tarEntries(t *testing.T, data []byte, format string) []string {
	t.Helper()

	var stream io.Reader = bytes.NewReader(data)
	switch format {
	case "gztar":
		gz, err := gzip.NewReader(stream)
		require.NoError(t, err)
		stream = gz
	case "bztar":
		stream = stdbzip2.NewReader(stream)
	case "xztar":
		xzr, err := xz.NewReader(stream)
		require.NoError(t, err)
		stream = xzr
	}

	tr := tar.NewReader(stream)
	var names []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Typeflag == tar.TypeDir {
			continue
		}
		names = append(names, header.Name)
	}
	return names
}
