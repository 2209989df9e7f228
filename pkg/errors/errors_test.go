package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
)

func TestNew(t *testing.T) {
	err := errors.New(errors.ErrConfigLoad, "config file not found")
	assert.Equal(t, "[CONFIG_LOAD] config file not found", err.Error())
	assert.Equal(t, errors.ErrConfigLoad, errors.GetErrorCode(err))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := errors.Wrap(cause, errors.ErrStaging, "copying tree")

	assert.Equal(t, "[STAGING] copying tree: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrStaging, "copying tree"))
}

func TestIsErrorCode(t *testing.T) {
	err := errors.Newf(errors.ErrToolExec, "%s exited non-zero", "appimagetool")

	assert.True(t, errors.IsErrorCode(err, errors.ErrToolExec))
	assert.False(t, errors.IsErrorCode(err, errors.ErrStaging))
	assert.False(t, errors.IsErrorCode(nil, errors.ErrToolExec))
}

func TestIsErrorCode_WrappedChain(t *testing.T) {
	inner := errors.New(errors.ErrToolExec, "conan install failed")
	outer := fmt.Errorf("resolving: %w", inner)

	assert.True(t, errors.IsErrorCode(outer, errors.ErrToolExec))
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrToolExec, "flatpak-builder failed").
		WithDetail("output", "error: runtime not installed")

	assert.Equal(t, "error: runtime not installed", err.Details["output"])
}

func TestGetErrorCode_PlainError(t *testing.T) {
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("boom")))
}
