// Package fetch downloads the raw disclosure extract from the open data
// portal. HTTP downloads are rate limited, retried with backoff, and skipped
// entirely when the portal reports the extract unchanged; FTP covers bulk
// mirrors.
package fetch

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a sync against the portal.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Rate       rate.Limit
	Burst      int
}

// Result reports what a sync did.
type Result struct {
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
	Changed bool   `json:"changed"`
}

// Sync downloads rawURL to destPath, creating parent directories as needed.
// For HTTP URLs the ETag from the previous sync is kept in a sidecar file
// next to the extract, so an unchanged extract costs one conditional request
// and no transfer. FTP always transfers the full file.
func Sync(ctx context.Context, rawURL, destPath string, opts Options) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, eris.Wrap(err, "fetch: parse url")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return Result{}, eris.Wrap(err, "fetch: create data directory")
	}

	switch u.Scheme {
	case "http", "https":
		return syncHTTP(ctx, rawURL, destPath, opts)
	case "ftp":
		f := NewFTPFetcher(FTPOptions{Timeout: opts.Timeout})
		n, err := f.DownloadToFile(ctx, rawURL, destPath)
		if err != nil {
			return Result{}, err
		}
		return Result{Path: destPath, Bytes: n, Changed: true}, nil
	default:
		return Result{}, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
}

func syncHTTP(ctx context.Context, rawURL, destPath string, opts Options) (Result, error) {
	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		Rate:       opts.Rate,
		Burst:      opts.Burst,
	})

	// A sidecar ETag without the extract itself is stale; force a full
	// download in that case.
	etag := ""
	if _, err := os.Stat(destPath); err == nil {
		etag = readETag(destPath)
	}

	body, newETag, changed, err := f.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		return Result{}, err
	}
	if !changed {
		zap.L().Info("extract unchanged, skipping download",
			zap.String("url", rawURL),
			zap.String("path", destPath),
		)
		return Result{Path: destPath, Changed: false}, nil
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(destPath)
	if err != nil {
		return Result{}, eris.Wrap(err, "fetch: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return Result{}, eris.Wrap(err, "fetch: write file")
	}

	if err := writeETag(destPath, newETag); err != nil {
		zap.L().Warn("could not record extract etag", zap.Error(err))
	}

	zap.L().Info("extract downloaded",
		zap.String("url", rawURL),
		zap.String("path", destPath),
		zap.Int64("bytes", n),
	)
	return Result{Path: destPath, Bytes: n, Changed: true}, nil
}

func etagPath(destPath string) string {
	return destPath + ".etag"
}

func readETag(destPath string) string {
	data, err := os.ReadFile(etagPath(destPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeETag(destPath, etag string) error {
	if etag == "" {
		err := os.Remove(etagPath(destPath))
		if err != nil && !os.IsNotExist(err) {
			return eris.Wrap(err, "fetch: remove etag sidecar")
		}
		return nil
	}
	if err := os.WriteFile(etagPath(destPath), []byte(etag+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "fetch: write etag sidecar")
	}
	return nil
}
