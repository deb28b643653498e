// Package llm talks to the Anthropic Messages API and builds note-aware
// assistance on top of it: summaries, tag suggestions, concept and question
// extraction, critique and connection finding.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-7-sonnet-20250219"
	apiVersion     = "2023-06-01"

	maxAttempts = 3
)

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. model and baseURL fall back to defaults when
// empty.
func NewClient(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user prompt and returns the model's text reply.
// Transient failures (429, 5xx) are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("no API key configured: %w", apperr.ErrUnauthorized)
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	body, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, retryable, err := c.send(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("call model API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			classifyError(resp.StatusCode, data)
	}

	var mr messageResponse
	if err := json.Unmarshal(data, &mr); err != nil {
		return "", false, fmt.Errorf("decode model response: %w", err)
	}
	var b strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", false, fmt.Errorf("model returned no text")
	}
	return reply, false, nil
}

// classifyError turns an API error into a message a CLI user can act on.
// Matching is on the body text since error types vary across failures.
func classifyError(status int, body []byte) error {
	msg := strings.ToLower(string(body))
	switch {
	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("model API rate limit exceeded, try again shortly")
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(msg, "authentication"):
		return fmt.Errorf("model API authentication failed, check CLAUDE_API_KEY: %w", apperr.ErrUnauthorized)
	case strings.Contains(msg, "content policy") || strings.Contains(msg, "harmful"):
		return fmt.Errorf("request declined by the model's content policy")
	default:
		return fmt.Errorf("model API error: status %d: %s", status, strings.TrimSpace(string(body)))
	}
}
