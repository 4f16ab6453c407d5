package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher. Credentials default to anonymous;
// NPPES dissemination drops and most state board sites allow it.
type FTPOptions struct {
	Timeout  time.Duration
	User     string
	Password string
}

// FTPFetcher downloads roster drops from plain FTP servers.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPFetcher{opts: opts}
}

// splitFTPURL breaks an ftp:// URL into a dialable address and a remote path.
func splitFTPURL(rawURL string) (addr, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrapf(err, "fetcher: parse ftp url %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("fetcher: expected ftp url, got scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", "", eris.Errorf("fetcher: ftp url %s has no path", rawURL)
	}

	addr = u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	return addr, u.Path, nil
}

// retrieve opens a connection and starts the transfer. The returned reader
// owns both the transfer and the connection.
func (f *FTPFetcher) retrieve(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	addr, path, err := splitFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp download",
		zap.String("addr", addr),
		zap.String("path", path),
	)

	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: dial %s", addr)
	}
	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetcher: ftp login to %s", addr)
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "fetcher: retrieve %s", path)
	}
	return &ftpTransfer{resp: resp, conn: conn}, nil
}

// ftpTransfer keeps the control connection open for the life of the
// transfer; Close releases both.
type ftpTransfer struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (t *ftpTransfer) Read(p []byte) (int, error) {
	return t.resp.Read(p)
}

func (t *ftpTransfer) Close() error {
	err := t.resp.Close()
	if quitErr := t.conn.Quit(); err == nil && quitErr != nil {
		err = quitErr
	}
	if err != nil {
		return eris.Wrap(err, "fetcher: close ftp transfer")
	}
	return nil
}

// Download fetches the FTP URL and returns a reader over the file. The
// caller must close it to release the connection.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f.retrieve(ctx, rawURL)
}

// DownloadToFile fetches the FTP URL into a local file and returns bytes
// written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	rc, err := f.retrieve(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, rc)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
