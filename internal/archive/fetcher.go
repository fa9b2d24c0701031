// Package archive downloads instrument data files from remote solar archives
// into a local cache.
package archive

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNoData means the archive has no file for the requested time.
var ErrNoData = errors.New("no archive data")

// Fetcher downloads URLs into a cache directory, reusing files already there.
type Fetcher struct {
	cacheDir   string
	httpClient *http.Client

	// OnDownload, if set, is called with the size of every completed download.
	OnDownload func(n int64)
}

// NewFetcher creates a fetcher caching under cacheDir.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CachePath returns where rawURL is stored locally: <cache>/<host>/<path>.
func (f *Fetcher) CachePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "parse url %s", rawURL)
	}
	clean := path.Clean("/" + u.Path)
	if clean == "/" {
		return "", errors.Errorf("url has no file path: %s", rawURL)
	}
	return filepath.Join(f.cacheDir, u.Host, filepath.FromSlash(clean)), nil
}

// Fetch returns the local path of rawURL, downloading it if it is not cached.
// A 404 is reported as ErrNoData.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	destPath, err := f.CachePath(rawURL)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		logrus.Debugf("archive: cache hit %s", destPath)
		return destPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", errors.Wrap(err, "create cache directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}

	logrus.Debugf("archive: downloading %s", rawURL)
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP GET failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.Wrapf(ErrNoData, "not found (404): %s", rawURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Create temp file
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", errors.Wrap(err, "create file failed")
	}

	n, err := io.Copy(out, resp.Body)
	out.Close()

	if err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "download failed")
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "rename failed")
	}

	if f.OnDownload != nil {
		f.OnDownload(n)
	}
	logrus.Debugf("archive: downloaded %s (%d bytes)", filepath.Base(destPath), n)
	return destPath, nil
}

// IsNoData reports whether err means the archive had nothing to offer.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
