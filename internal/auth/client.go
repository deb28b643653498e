package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
)

// Client calls the token service that fronts user accounts and API keys.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a token service client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Identity describes the account an API key belongs to.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// ValidateKey checks an API key against the token service and returns the
// identity behind it.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) (Identity, error) {
	data, err := c.post(ctx, "/validate-cli-token", apiKey)
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

// Token exchanges an API key for a short-lived JWT accepted by the data
// backend.
func (c *Client) Token(ctx context.Context, apiKey string) (string, error) {
	data, err := c.post(ctx, "/token-from-key", apiKey)
	if err != nil {
		return "", err
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("token service returned no token")
	}
	return body.Token, nil
}

// Forward relays a request to the token service and returns the upstream
// status and body. Used by the web API to proxy account endpoints.
func (c *Client) Forward(ctx context.Context, method, path string, body io.Reader, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call token service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read token service response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) post(ctx context.Context, path, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call token service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token service response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("API key rejected: %w", apperr.ErrUnauthorized)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("token service: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
