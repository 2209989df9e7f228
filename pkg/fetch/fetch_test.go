package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/fetch"
)

func TestDownload(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("#!/bin/sh\necho makeself\n"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	client := fetch.NewClient(fs)

	err := client.Download(context.Background(), server.URL, "/cache/tools/makeself.run", 0o755)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/cache/tools/makeself.run")
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho makeself\n", string(data))

	info, err := fs.Stat("/cache/tools/makeself.run")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
	assert.Equal(t, int32(1), requests.Load())
}

func TestDownload_CachedDestinationSkipsNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("tool"))
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cache/tools/tool.bin", []byte("cached"), 0o755))

	client := fetch.NewClient(fs)
	err := client.Download(context.Background(), server.URL, "/cache/tools/tool.bin", 0o755)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/cache/tools/tool.bin")
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data), "cached file must not be re-downloaded")
	assert.Zero(t, requests.Load())
}

func TestDownload_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	client := fetch.NewClient(fs)

	err := client.Download(context.Background(), server.URL, "/cache/tools/tool.bin", 0o755)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrToolDownload))

	exists, _ := afero.Exists(fs, "/cache/tools/tool.bin")
	assert.False(t, exists, "failed download must not leave a destination file")
}
