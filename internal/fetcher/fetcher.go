// Package fetcher downloads roster drops over HTTP(S) and FTP and decodes
// the formats practice groups and state boards publish them in: CSV and
// XLSX tables, JSON and XML record lists, and zipped single-file archives.
package fetcher

import (
	"context"
	"io"
)

// A Fetcher retrieves one remote roster drop.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// must close the returned reader.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into a local file and returns the
	// number of bytes written.
	DownloadToFile(ctx context.Context, url, path string) (int64, error)
}
