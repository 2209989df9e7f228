package generators

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
)

func copyFsFile(fsys afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "reading %s", src)
	}
	return writeFsFile(fsys, dst, data, 0o644)
}

func writeFsFile(fsys afero.Fs, path string, data []byte, mode os.FileMode) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", filepath.Dir(path))
	}
	if err := afero.WriteFile(fsys, path, data, mode); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "writing %s", path)
	}
	return nil
}
