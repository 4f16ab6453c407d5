// Package npi wraps the CMS National Provider Identifier registry API.
package npi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/directory-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"
	apiVersion     = "2.1"
)

// Client defines the registry API operations used by the registry adapter.
type Client interface {
	SearchByNumber(ctx context.Context, number string) (*Result, error)
	SearchByName(ctx context.Context, firstName, lastName, state string) ([]Result, error)
}

// Result is a single provider record from the registry API.
type Result struct {
	Number     string     `json:"number"`
	Basic      Basic      `json:"basic"`
	Addresses  []Address  `json:"addresses"`
	Taxonomies []Taxonomy `json:"taxonomies"`
}

// Basic holds the identity block of a registry record.
type Basic struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Credential string `json:"credential"`
}

// Address is one registry-reported address.
type Address struct {
	Purpose    string `json:"address_purpose"` // LOCATION or MAILING
	Line1      string `json:"address_1"`
	Line2      string `json:"address_2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Telephone  string `json:"telephone_number"`
}

// Taxonomy is one registry-reported specialty classification.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
	State   string `json:"state"`
	License string `json:"license"`
}

// PracticeLocation returns the first LOCATION-purpose address, or nil.
func (r *Result) PracticeLocation() *Address {
	for i := range r.Addresses {
		if r.Addresses[i].Purpose == "LOCATION" {
			return &r.Addresses[i]
		}
	}
	return nil
}

type searchResponse struct {
	ResultCount int      `json:"result_count"`
	Results     []Result `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (2 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a registry API client. Requests are throttled to 2 req/s
// by default; the registry API is a shared public service.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchByNumber(ctx context.Context, number string) (*Result, error) {
	q := url.Values{}
	q.Set("number", number)

	resp, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp.ResultCount == 0 || len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (c *httpClient) SearchByName(ctx context.Context, firstName, lastName, state string) ([]Result, error) {
	q := url.Values{}
	q.Set("first_name", firstName)
	q.Set("last_name", lastName)
	if state != "" {
		q.Set("state", state)
	}

	resp, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *httpClient) search(ctx context.Context, q url.Values) (*searchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "npi: rate limiter")
		}
	}

	q.Set("version", apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "npi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "npi: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "npi: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("npi: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "npi: unmarshal response")
	}
	return &sr, nil
}
