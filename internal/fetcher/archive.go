package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Unzip extracts the lone file inside a zipped roster drop into destDir and
// returns its path. Archives with more than one file are rejected; a roster
// drop is one roster.
func Unzip(zipPath, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var entry *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if entry != nil {
			return "", eris.Errorf("fetcher: archive %s holds more than one file", zipPath)
		}
		entry = f
	}
	if entry == nil {
		return "", eris.Errorf("fetcher: archive %s is empty", zipPath)
	}

	dest := filepath.Join(destDir, entry.Name)
	// Reject entry names that escape destDir.
	if !strings.HasPrefix(filepath.Clean(dest), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: archive entry %q escapes destination", entry.Name)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create extraction directory")
	}

	rc, err := entry.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create extracted file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetcher: write extracted file")
	}
	return dest, nil
}
