package deploy

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// Stager copies dependency files and the project executable into a
// destination tree. Every format generator stages through the same Stager.
type Stager struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewStager creates a Stager operating on the given filesystem.
func NewStager(fsys afero.Fs) *Stager {
	return &Stager{
		fs:     fsys,
		logger: logging.GetLogger("deploy.stager"),
	}
}

// Stage copies every source directory in the copy map into
// dest/<relative dir>. Sources sharing a relative directory are merged:
// copying is additive and a later source never deletes files contributed
// by an earlier one. Sources are processed in sorted order so same-named
// file collisions resolve deterministically (last writer wins).
func (s *Stager) Stage(copyMap CopyMap, dest string) error {
	if err := s.fs.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", dest)
	}

	sources := make([]string, 0, len(copyMap))
	for source := range copyMap {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	for _, source := range sources {
		target := filepath.Join(dest, filepath.FromSlash(copyMap[source]))
		s.logger.Debug().Str("from", source).Str("to", target).Msg("Copying tree")
		if err := s.copyTree(source, target); err != nil {
			return err
		}
	}
	return nil
}

// InstallExecutable copies the project executable into the destination
// root and marks it executable for user, group and other. Permission bits
// are left alone on platforms without a POSIX permission model.
func (s *Stager) InstallExecutable(src, dest string) error {
	target := filepath.Join(dest, filepath.Base(src))
	info, err := s.fs.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "locating executable %s", src)
	}
	if err := s.copyFile(src, target, info.Mode()); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := s.fs.Chmod(target, info.Mode().Perm()|0o111); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "marking %s executable", target)
	}
	return nil
}

func (s *Stager) copyTree(source, target string) error {
	err := afero.Walk(s.fs, source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "walking %s", path)
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "resolving %s under %s", path, source)
		}
		dst := filepath.Join(target, rel)
		if info.IsDir() {
			if err := s.fs.MkdirAll(dst, 0o755); err != nil {
				return errors.Wrapf(err, errors.ErrStaging, "creating %s", dst)
			}
			return nil
		}
		return s.copyFile(path, dst, info.Mode())
	})
	return err
}

func (s *Stager) copyFile(src, dst string, mode os.FileMode) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "opening %s", src)
	}
	defer in.Close()

	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", filepath.Dir(dst))
	}

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", dst)
	}

	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return errors.Wrapf(copyErr, errors.ErrStaging, "copying %s to %s", src, dst)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, errors.ErrStaging, "closing %s", dst)
	}

	// The create mode may have been masked by the umask; restore it so
	// shared libraries and tools keep their execute bits.
	if runtime.GOOS != "windows" {
		if err := s.fs.Chmod(dst, mode.Perm()); err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "setting mode on %s", dst)
		}
	}
	return nil
}
