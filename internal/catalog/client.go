// Package catalog serves gig queries: cached results when fresh, the remote
// gig API when not, and an embedded fallback dataset when the remote fails.
package catalog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip, deflate, br"

	userAgent = "gigflow/gigwatch"

	// DefaultTimeout bounds every catalog request; a request exceeding it is
	// treated as a remote failure and triggers the fallback path.
	DefaultTimeout = 10 * time.Second
)

// Client talks to the gig catalog REST API.
type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func NewClient(ctx context.Context, logger *zap.Logger, baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ctx:     ctx,
		token:   token,
		logger:  logger,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}

// Gigs fetches the full gig feed.
func (c *Client) Gigs(q url.Values) ([]*gig.Gig, error) {
	var gigs []*gig.Gig
	if err := c.getJSON(fmt.Sprintf("%s/gigs", c.BaseURL), q, &gigs); err != nil {
		return nil, err
	}
	return gigs, nil
}

// MatchingGigs fetches gigs pre-scored for the user on the server side.
func (c *Client) MatchingGigs(userID string, q url.Values) ([]*gig.MatchResult, error) {
	var matches []*gig.MatchResult
	apiURL := fmt.Sprintf("%s/gigs/matching/%s", c.BaseURL, url.PathEscape(userID))
	if err := c.getJSON(apiURL, q, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// SearchGigs runs a free-text search on the remote catalog.
func (c *Client) SearchGigs(query string, q url.Values) ([]*gig.Gig, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("q", query)

	var gigs []*gig.Gig
	if err := c.getJSON(fmt.Sprintf("%s/gigs/search", c.BaseURL), q, &gigs); err != nil {
		return nil, err
	}
	return gigs, nil
}

// GigByID fetches a single gig.
func (c *Client) GigByID(id string) (*gig.Gig, error) {
	var g gig.Gig
	apiURL := fmt.Sprintf("%s/gigs/%s", c.BaseURL, url.PathEscape(id))
	if err := c.getJSON(apiURL, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) getJSON(apiURL string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return err
	}

	req = c.setHeaders(req)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return err
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
