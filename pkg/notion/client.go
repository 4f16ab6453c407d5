// Package notion pushes the manual review queue into a Notion database and
// reads back what reviewers have not yet resolved.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the slice of the Notion API the review queue needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the client.
type ClientOption func(*apiClient)

// WithRateLimit overrides the default request rate. Zero or negative
// disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// apiClient wraps *notionapi.Client with request throttling. Notion allows
// 3 req/s per integration; a full queue sync is a burst of page writes, so
// every call goes through the limiter.
type apiClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a throttled Notion client for the given integration
// token.
func NewClient(token string, opts ...ClientOption) Client {
	c := &apiClient{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *apiClient) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: rate limit")
	}
	return nil
}

func (c *apiClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

func (c *apiClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

func (c *apiClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: update page %s", pageID)
	}
	return page, nil
}

// QueryAll walks a database query through Notion's cursor pagination and
// returns every page. Review queues run to a few hundred rows at most, so
// pages are collected eagerly.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	var all []notionapi.Page
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all cancelled")
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// QueryOpenReviews fetches all pages with Status = "Open" from the review
// queue database. Pages are marked "Resolved" out-of-band by reviewers, so
// anything still "Open" is outstanding work.
func QueryOpenReviews(ctx context.Context, c Client, dbID string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Open",
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query open reviews")
	}
	return pages, nil
}
