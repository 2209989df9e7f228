package generators_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SSE4/conan-deploy-tool/pkg/execx"
	"github.com/SSE4/conan-deploy-tool/pkg/generators"
)

// extractHandler emulates the makeself self-extractor: running the
// downloaded .run with --target produces makeself.sh in that directory.
func extractHandler(fs afero.Fs) func(cmd execx.Cmd) (string, error) {
	return func(cmd execx.Cmd) (string, error) {
		if strings.HasSuffix(cmd.Name, ".run") {
			target := cmd.Args[len(cmd.Args)-1]
			if err := afero.WriteFile(fs, filepath.Join(target, "makeself.sh"),
				[]byte("#!/bin/sh\n"), 0o755); err != nil {
				return "", err
			}
		}
		return "", nil
	}
}

func TestMakeselfGenerator(t *testing.T) {
	gctx, fs, runner, fetcher := newTestContext(t)
	runner.Handler = extractHandler(fs)

	gen, err := generators.New("makeself")
	require.NoError(t, err)
	require.NoError(t, gen.Run(context.Background(), gctx))

	// The makeself distribution is downloaded into the versioned cache.
	require.Len(t, fetcher.URLs, 1)
	assert.Contains(t, fetcher.URLs[0], "makeself-2.5.0.run")

	require.Len(t, runner.Commands, 2)

	extract := runner.Commands[0]
	assert.Contains(t, extract.Name, "makeself-2.5.0.run")
	assert.Contains(t, extract.Args, "--noexec")

	pack := runner.Commands[1]
	assert.True(t, strings.HasSuffix(pack.Name, "makeself.sh"), pack.Name)
	require.Len(t, pack.Args, 4)
	assert.Equal(t, "/out/myapp.run", pack.Args[1])
	assert.Equal(t, "myapp", pack.Args[2])
	assert.Equal(t, "./myapp.sh", pack.Args[3])
}

func TestMakeselfGenerator_ReusesExtractedTool(t *testing.T) {
	gctx, fs, runner, fetcher := newTestContext(t)
	runner.Handler = extractHandler(fs)

	gen, err := generators.New("makeself")
	require.NoError(t, err)

	require.NoError(t, gen.Run(context.Background(), gctx))
	require.NoError(t, gen.Run(context.Background(), gctx))

	// One extraction, two packagings; the download itself is also cached
	// by the fetcher.
	var extractions, packagings int
	for _, cmd := range runner.Commands {
		if strings.HasSuffix(cmd.Name, ".run") {
			extractions++
		} else {
			packagings++
		}
	}
	assert.Equal(t, 1, extractions)
	assert.Equal(t, 2, packagings)
	assert.Len(t, fetcher.URLs, 2, "fetcher is asked each run but serves from cache")
}

func TestMakeselfGenerator_PackagingFailureAborts(t *testing.T) {
	gctx, fs, runner, _ := newTestContext(t)
	runner.Handler = func(cmd execx.Cmd) (string, error) {
		if strings.HasSuffix(cmd.Name, ".run") {
			return extractHandler(fs)(cmd)
		}
		return "", assert.AnError
	}

	gen, err := generators.New("makeself")
	require.NoError(t, err)
	require.Error(t, gen.Run(context.Background(), gctx))

	exists, _ := afero.Exists(fs, "/out/myapp.run")
	assert.False(t, exists)
}
