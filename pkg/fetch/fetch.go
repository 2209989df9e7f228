// Package fetch downloads third-party packaging tools into the shared
// cache. Downloads are keyed by their destination filename; an existing
// destination is reused without touching the network.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
	"github.com/SSE4/conan-deploy-tool/pkg/logging"
)

// Fetcher retrieves a URL into a local file with the given permissions.
type Fetcher interface {
	Download(ctx context.Context, url, dest string, mode os.FileMode) error
}

// Client is an HTTP Fetcher with a bounded request timeout.
type Client struct {
	httpClient *http.Client
	fs         afero.Fs
	userAgent  string
	logger     zerolog.Logger
}

// NewClient creates a Fetcher writing through the given filesystem.
func NewClient(fs afero.Fs) *Client {
	return NewClientWithTimeout(fs, 5*time.Minute)
}

// NewClientWithTimeout creates a Fetcher with a custom request timeout.
func NewClientWithTimeout(fs afero.Fs, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		fs:         fs,
		userAgent:  "conan-deploy-tool/1.0",
		logger:     logging.GetLogger("fetch"),
	}
}

// Download fetches url into dest unless dest already exists. The file is
// written via a temporary sibling and renamed so a failed download never
// leaves a truncated tool in the cache.
func (c *Client) Download(ctx context.Context, url, dest string, mode os.FileMode) error {
	exists, err := afero.Exists(c.fs, dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "checking cache for %s", dest)
	}
	if exists {
		c.logger.Debug().Str("dest", dest).Msg("Using cached download")
		return nil
	}

	c.logger.Info().Str("url", url).Str("dest", dest).Msg("Downloading")

	if err := c.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "creating cache directory for %s", dest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "creating request for %s", url)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "downloading %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrToolDownload,
			"downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp := dest + ".partial"
	out, err := c.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "creating %s", tmp)
	}

	_, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = c.fs.Remove(tmp)
		return errors.Wrapf(copyErr, errors.ErrToolDownload, "writing %s", tmp)
	}
	if closeErr != nil {
		_ = c.fs.Remove(tmp)
		return errors.Wrapf(closeErr, errors.ErrToolDownload, "closing %s", tmp)
	}

	if err := c.fs.Chmod(tmp, mode); err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "setting mode on %s", tmp)
	}
	if err := c.fs.Rename(tmp, dest); err != nil {
		return errors.Wrapf(err, errors.ErrToolDownload, "finalizing %s", dest)
	}
	return nil
}
