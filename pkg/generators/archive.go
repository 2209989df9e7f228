package generators

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// archiveExtensions maps generator names to artifact extensions, matching
// the naming conventions of the classic shutil archive formats.
var archiveExtensions = map[string]string{
	"zip":   ".zip",
	"tar":   ".tar",
	"gztar": ".tar.gz",
	"bztar": ".tar.bz2",
	"xztar": ".tar.xz",
}

// ArchiveGenerator stages into a scoped temporary directory and compresses
// it into a single archive artifact.
type ArchiveGenerator struct {
	format string
}

// Name implements Generator.
func (g *ArchiveGenerator) Name() string { return g.format }

// Run implements Generator.
func (g *ArchiveGenerator) Run(ctx context.Context, gctx *Context) error {
	logger := logging.GetLogger("generators." + g.format)

	staging, err := gctx.tempStagingDir()
	if err != nil {
		return err
	}
	defer func() {
		_ = gctx.Fs.RemoveAll(staging)
	}()

	if err := gctx.stage(staging); err != nil {
		return err
	}
	if err := gctx.writeLauncher(staging, selfDirVar, selfDirInit); err != nil {
		return err
	}

	out := filepath.Join(gctx.OutputDir, gctx.Config.Name+archiveExtensions[g.format])
	if g.format == "zip" {
		err = writeZip(gctx.Fs, staging, out)
	} else {
		err = writeTar(gctx.Fs, staging, out, g.format)
	}
	if err != nil {
		return err
	}

	logger.Info().Str("path", out).Msg("Deployed archive bundle")
	return nil
}

func writeZip(fsys afero.Fs, root, out string) error {
	file, err := fsys.Create(out)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", out)
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "walking %s", path)
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "resolving %s", path)
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "describing %s", path)
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "archiving %s", rel)
		}
		return copyInto(fsys, path, w)
	})
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "finalizing %s", out)
	}
	return nil
}

func writeTar(fsys afero.Fs, root, out, format string) error {
	file, err := fsys.Create(out)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "creating %s", out)
	}
	defer file.Close()

	compressor, err := newCompressor(file, format)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "initializing %s compression", format)
	}

	tw := tar.NewWriter(compressor.writer)
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "walking %s", path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "resolving %s", path)
		}
		if rel == "." {
			return nil
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "describing %s", path)
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return errors.Wrapf(err, errors.ErrStaging, "archiving %s", rel)
		}
		if info.IsDir() {
			return nil
		}
		return copyInto(fsys, path, tw)
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "finalizing %s", out)
	}
	if err := compressor.close(); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "finalizing %s compression", format)
	}
	return nil
}

type compressor struct {
	writer io.Writer
	close  func() error
}

func newCompressor(w io.Writer, format string) (*compressor, error) {
	switch format {
	case "tar":
		return &compressor{writer: w, close: func() error { return nil }}, nil
	case "gztar":
		gz := gzip.NewWriter(w)
		return &compressor{writer: gz, close: gz.Close}, nil
	case "bztar":
		bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, err
		}
		return &compressor{writer: bz, close: bz.Close}, nil
	case "xztar":
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return &compressor{writer: xzw, close: xzw.Close}, nil
	default:
		return nil, errors.Newf(errors.ErrInternal, "unsupported tar format %q", format)
	}
}

func copyInto(fsys afero.Fs, path string, w io.Writer) error {
	in, err := fsys.Open(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "opening %s", path)
	}
	defer in.Close()
	if _, err := io.Copy(w, in); err != nil {
		return errors.Wrapf(err, errors.ErrStaging, "compressing %s", path)
	}
	return nil
}
