// TEST TYPE: Unit Tests
// PURPOSE: Root command flag handling and error surfacing

package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SSE4/conan-deploy-tool/internal/cli"
	"github.com/SSE4/conan-deploy-tool/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_RequiresGenerator(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "--generator")
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "conan-deploy-tool")
}

func TestRootCmd_UnknownGenerator(t *testing.T) {
	_, err := execute(t, "-g", "msi")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGeneratorUnknown))
}

func TestRootCmd_MissingConfig(t *testing.T) {
	// Runs in the test's working directory, which has no deploy.conf.
	_, err := execute(t, "-g", "dir", "-c", "no-such-deploy.conf")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}
