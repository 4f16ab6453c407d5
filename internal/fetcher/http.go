package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/directory-cli/internal/resilience"
)

// DefaultHostRate is the request rate applied to hosts without an explicit
// entry in HTTPOptions.HostRates.
const DefaultHostRate rate.Limit = 20

// defaultHostRates covers the CMS hosts roster drops come from. NPPES
// dissemination downloads are large; keep that host slow.
func defaultHostRates() map[string]rate.Limit {
	return map[string]rate.Limit{
		"npiregistry.cms.hhs.gov": 10,
		"download.cms.gov":        10,
		"data.cms.gov":            10,
		"nppes.cms.hhs.gov":       5,
	}
}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int                   // total attempts per request, including the first
	HostRates   map[string]rate.Limit // per-host request rates; unlisted hosts get DefaultHostRate
}

// HTTPFetcher downloads roster drops over HTTP(S) with per-host rate
// limiting and transient-error retries.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	backoff time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "directory-cli/1.0"
	}
	if opts.HostRates == nil {
		opts.HostRates = defaultHostRates()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		backoff:  time.Second,
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiterFor returns the host's limiter, building it on first use.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	r := DefaultHostRate
	if hr, ok := f.opts.HostRates[host]; ok {
		r = hr
	}
	lim := rate.NewLimiter(r, int(r))
	f.limiters[host] = lim
	return lim
}

// get performs a rate-limited GET, retrying 429/5xx and transport errors.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts:    f.opts.MaxAttempts,
		InitialBackoff: f.backoff,
		MaxBackoff:     30 * time.Second,
		OnRetry: func(attempt int, err error) {
			zap.L().Warn("retrying download",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: build request for %s", rawURL)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: %s returned %d", rawURL, resp.StatusCode),
				resp.StatusCode,
			)
		}
		return resp, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL into a local file and returns bytes written.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, body)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
