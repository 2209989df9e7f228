// TEST TYPE: Unit Tests
// PURPOSE: Staging tree copies, merge semantics and executable install

package deploy_test

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SSE4/conan-deploy-tool/pkg/deploy"
	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/testutil"
)

func TestStage_MergesSourcesSharingRelativeDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/deps/liba/lib/liba.so": "a",
		"/deps/libb/lib/libb.so": "b",
	})

	copyMap := deploy.CopyMap{
		"/deps/liba/lib": "lib",
		"/deps/libb/lib": "lib",
	}

	stager := deploy.NewStager(fs)
	require.NoError(t, stager.Stage(copyMap, "/dest"))

	// Union of both sources, no silent data loss.
	a, err := afero.ReadFile(fs, "/dest/lib/liba.so")
	require.NoError(t, err)
	assert.Equal(t, "a", string(a))

	b, err := afero.ReadFile(fs, "/dest/lib/libb.so")
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
}

func TestStage_SameNamedFileLastWriterWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/deps/liba/lib/common.so": "from-liba",
		"/deps/libb/lib/common.so": "from-libb",
	})

	copyMap := deploy.CopyMap{
		"/deps/liba/lib": "lib",
		"/deps/libb/lib": "lib",
	}

	stager := deploy.NewStager(fs)
	require.NoError(t, stager.Stage(copyMap, "/dest"))

	// Sources are processed in sorted order, so /deps/libb wins.
	content, err := afero.ReadFile(fs, "/dest/lib/common.so")
	require.NoError(t, err)
	assert.Equal(t, "from-libb", string(content))
}

func TestStage_IsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/deps/liba/lib/liba.so":   "a",
		"/deps/tool/bin/converter": "c",
	})

	copyMap := deploy.CopyMap{
		"/deps/liba/lib": "lib",
		"/deps/tool/bin": "bin",
	}

	stager := deploy.NewStager(fs)
	require.NoError(t, stager.Stage(copyMap, "/dest"))
	first := snapshot(t, fs, "/dest")

	require.NoError(t, stager.Stage(copyMap, "/dest"))
	second := snapshot(t, fs, "/dest")

	assert.Equal(t, first, second)
}

func TestStage_PreservesNestedLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/deps/qt/lib/plugins/platforms/libxcb.so": "x",
	})

	copyMap := deploy.CopyMap{"/deps/qt/lib": "lib"}

	stager := deploy.NewStager(fs)
	require.NoError(t, stager.Stage(copyMap, "/dest"))

	exists, err := afero.Exists(fs, "/dest/lib/plugins/platforms/libxcb.so")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInstallExecutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFiles(t, fs, map[string]string{
		"/project/build/myapp": "ELF",
	})

	stager := deploy.NewStager(fs)
	require.NoError(t, fs.MkdirAll("/dest", 0o755))
	require.NoError(t, stager.InstallExecutable("/project/build/myapp", "/dest"))

	info, err := fs.Stat("/dest/myapp")
	require.NoError(t, err)
	assert.Equal(t, "myapp", info.Name())
	assert.NotZero(t, info.Mode()&0o111, "executable bits must be set")
}

func TestInstallExecutable_MissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()

	stager := deploy.NewStager(fs)
	err := stager.InstallExecutable("/project/build/missing", "/dest")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStaging))
}

// snapshot maps every file under root to its content.
func snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		files[path] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}
