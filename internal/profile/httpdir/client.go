// Package httpdir adapts a remote profile directory service to the
// profile.Directory port.
package httpdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"linkup/internal/profile"
	id "linkup/pkg/domain"
	dErrors "linkup/pkg/domain-errors"
	"linkup/pkg/platform/sentinel"
)

const defaultTimeout = 3 * time.Second

// Client talks to the directory over its JSON HTTP API:
//
//	GET {base}/profiles/{id}              one profile, 404 when unknown
//	GET {base}/profiles?industry={value}  matching user IDs
//	GET {base}/profiles?location={value}  matching user IDs
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.Timeout = timeout }
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) ExistsAndActive(ctx context.Context, userID id.UserID) (bool, error) {
	p, err := c.Get(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Active, nil
}

func (c *Client) Get(ctx context.Context, userID id.UserID) (*profile.Profile, error) {
	endpoint := c.baseURL + "/profiles/" + userID.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile directory unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	default:
		return nil, dErrors.Newf(dErrors.CodeInternal,
			"profile directory returned status %d", resp.StatusCode)
	}

	var p profile.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode directory response")
	}
	return &p, nil
}

func (c *Client) FindByIndustry(ctx context.Context, industry string, limit int) ([]id.UserID, error) {
	return c.find(ctx, "industry", industry, limit)
}

func (c *Client) FindByLocation(ctx context.Context, location string, limit int) ([]id.UserID, error) {
	return c.find(ctx, "location", location, limit)
}

func (c *Client) find(ctx context.Context, attribute, value string, limit int) ([]id.UserID, error) {
	if value == "" {
		return nil, nil
	}

	query := url.Values{attribute: []string{value}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/profiles?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile directory unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeInternal,
			"profile directory returned status %d", resp.StatusCode)
	}

	var body struct {
		UserIDs []id.UserID `json:"user_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode directory response")
	}
	return body.UserIDs, nil
}
