// Package providerhttp holds the JSON-over-HTTP plumbing shared by provider
// adapters. Every failure is reported as a *domain.ProviderError so callers
// can classify it as transient or permanent.
package providerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4 << 10

// Client sends JSON requests to one provider.
type Client struct {
	HTTP     *http.Client
	Provider string
	BaseURL  string

	// Header is added to every request.
	Header http.Header
}

// New creates a client with the given timeout.
func New(provider, baseURL string, timeout time.Duration) *Client {
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Provider: provider,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Header:   make(http.Header),
	}
}

// Do sends in as JSON (nil sends no body) and decodes a 2xx response into out
// (nil discards it). op names the operation in errors.
func (c *Client) Do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: marshal request: %w", c.Provider, op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: create request: %w", c.Provider, op, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.NewProviderError(c.Provider, op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ResponseError(c.Provider, op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewProviderError(c.Provider, op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ResponseError converts a failed response into a ProviderError, keeping
// the provider's error message when the body carries one.
func ResponseError(provider, op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return domain.NewProviderError(provider, op, resp.StatusCode, errors.New(errorMessage(raw, resp.Status)))
}

// errorMessage extracts {"error":{"message":...}}, {"error":"..."} or
// {"message":...} from body, or falls back to the trimmed body or status.
func errorMessage(body []byte, status string) string {
	var shaped struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
	}
	if json.Unmarshal(body, &shaped) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(shaped.Error, &nested) == nil && nested.Message != "":
			return nested.Message
		case json.Unmarshal(shaped.Error, &flat) == nil && flat != "":
			return flat
		case shaped.Message != "":
			return shaped.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}
