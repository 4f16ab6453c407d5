package intake

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/fetcher"
)

// FetchFile downloads a remote roster or credential document to destDir and
// returns the local path. FTP and HTTP(S) URLs are supported; state boards
// still publish roster drops on plain FTP.
func FetchFile(ctx context.Context, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "intake: parse url %s", rawURL)
	}

	name := filepath.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("intake: url %s has no file name", rawURL)
	}
	dest := filepath.Join(destDir, name)

	var f interface {
		DownloadToFile(ctx context.Context, url string, path string) (int64, error)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 2 * time.Minute})
	case "ftp":
		f = fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 2 * time.Minute})
	default:
		return "", eris.Errorf("intake: unsupported scheme %q", u.Scheme)
	}

	n, err := f.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return "", eris.Wrapf(err, "intake: download %s", rawURL)
	}

	zap.L().Info("file fetched",
		zap.String("url", rawURL),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}
