// Package deploy holds the format-independent deployment core: deriving
// relative library/binary directories from resolved dependencies, staging
// dependency files into a destination tree, and generating the launcher
// script.
package deploy

import (
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
	"github.com/SSE4/conan-deploy-tool/pkg/manifest"
)

// RelativeDirs are the distinct library and binary directories of all
// dependencies, relative to their respective dependency roots. Both slices
// are sorted so every derived artifact (launcher script, staged layout) is
// reproducible.
type RelativeDirs struct {
	Lib []string
	Bin []string
}

// CopyMap maps an absolute source directory to the relative directory it
// is staged into. Several sources may share one relative destination; the
// stager merges them.
type CopyMap map[string]string

// DeriveDirs scans every dependency's lib and bin paths, skipping missing
// and empty directories, and returns the deduplicated relative directory
// sets together with the copy map used for staging.
func DeriveDirs(fsys afero.Fs, deps []manifest.Dependency) (RelativeDirs, CopyMap, error) {
	logger := logging.GetLogger("deploy")

	libSet := make(map[string]struct{})
	binSet := make(map[string]struct{})
	copyMap := make(CopyMap)

	for _, dep := range deps {
		logger.Debug().
			Str("dependency", dep.Name).
			Strs("lib_paths", dep.LibPaths).
			Strs("bin_paths", dep.BinPaths).
			Msg("Scanning dependency")

		if err := collect(fsys, dep.RootPath, dep.LibPaths, libSet, copyMap); err != nil {
			return RelativeDirs{}, nil, err
		}
		if err := collect(fsys, dep.RootPath, dep.BinPaths, binSet, copyMap); err != nil {
			return RelativeDirs{}, nil, err
		}
	}

	dirs := RelativeDirs{Lib: sortedKeys(libSet), Bin: sortedKeys(binSet)}
	logger.Debug().
		Strs("lib_dirs", dirs.Lib).
		Strs("bin_dirs", dirs.Bin).
		Msg("Derived relative directories")
	return dirs, copyMap, nil
}

func collect(fsys afero.Fs, root string, dirs []string, set map[string]struct{}, copyMap CopyMap) error {
	for _, dir := range dirs {
		nonEmpty, err := nonEmptyDir(fsys, dir)
		if err != nil {
			return err
		}
		if !nonEmpty {
			continue
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging,
				"computing path of %s relative to %s", dir, root)
		}
		rel = filepath.ToSlash(rel)
		set[rel] = struct{}{}
		copyMap[dir] = rel
	}
	return nil
}

// nonEmptyDir reports whether path is a directory with at least one entry.
// Missing paths are not an error; dependencies without staged-file
// directories are simply skipped.
func nonEmptyDir(fsys afero.Fs, path string) (bool, error) {
	exists, err := afero.DirExists(fsys, path)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrStaging, "checking %s", path)
	}
	if !exists {
		return false, nil
	}
	entries, err := afero.ReadDir(fsys, path)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrStaging, "reading %s", path)
	}
	return len(entries) > 0, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
