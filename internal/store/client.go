// Package store implements the PostgREST-backed persistence layer with an
// in-process TTL cache in front of it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
)

// Client is a thin HTTP client for a PostgREST endpoint. All rows are
// exchanged as JSON arrays; filters use the standard PostgREST query
// conventions (col=eq.v, order=..., limit=...).
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a PostgREST client. token is the JWT sent as a Bearer
// credential on every request; it may be empty for anonymous access.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken replaces the Bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) do(ctx context.Context, method, resource string, params url.Values, body any) ([]byte, error) {
	u := c.baseURL + "/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", resource, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodDelete {
		// Ask PostgREST to echo affected rows so callers can tell
		// "deleted nothing" from "deleted something".
		req.Header.Set("Prefer", "return=representation")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, resource, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", resource, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s %s: %w", method, resource, apperr.ErrUnauthorized)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, resource, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}

// Select runs a GET against resource and decodes the row array into dest.
func (c *Client) Select(ctx context.Context, resource string, params url.Values, dest any) error {
	data, err := c.do(ctx, http.MethodGet, resource, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", resource, err)
	}
	return nil
}

// Insert POSTs row to resource and returns the echoed representation.
func (c *Client) Insert(ctx context.Context, resource string, row any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, resource, nil, row)
}

// Update PATCHes the rows matched by params with the given changes.
func (c *Client) Update(ctx context.Context, resource string, params url.Values, changes any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, resource, params, changes)
}

// Delete removes the rows matched by params and returns their representation.
func (c *Client) Delete(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, resource, params, nil)
}

// eq builds a single-column PostgREST equality filter.
func eq(column, value string) url.Values {
	p := url.Values{}
	p.Set(column, "eq."+value)
	return p
}
