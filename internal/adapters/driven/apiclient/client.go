// Package apiclient is the JSON-over-HTTP transport shared by the model
// provider adapters. It owns request encoding, reply decoding and the
// mapping of failures onto the domain's retriable errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Client talks to one provider endpoint.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	header  http.Header

	unavailable error
	timeout     error
	// strict reports only 5xx and 429 replies as unavailable.
	strict bool
}

// Option customises a Client.
type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithBearer authenticates with an API key in the Authorization header.
func WithBearer(apiKey string) Option {
	return WithHeader("Authorization", "Bearer "+apiKey)
}

// ForEmbeddings classifies failures as domain.ErrEmbeddingUnavailable and
// treats client errors (4xx other than 429) as permanent.
func ForEmbeddings() Option {
	return func(c *Client) {
		c.unavailable = domain.ErrEmbeddingUnavailable
		c.timeout = domain.ErrEmbeddingUnavailable
		c.strict = true
	}
}

// New creates a client for the named provider. Failures default to the
// LLM error kinds.
func New(name, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		header:      make(http.Header),
		unavailable: domain.ErrLLMUnavailable,
		timeout:     domain.ErrLLMTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name used in error messages.
func (c *Client) Name() string { return c.name }

// BaseURL returns the endpoint root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Post sends in as JSON to path and decodes a 200 reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	body, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", c.name, err)
	}
	return nil
}

// Ping issues a GET against a cheap endpoint. Any non-200 reply marks the
// provider unavailable.
func (c *Client) Ping(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, path, http.NoBody)
	var se *StatusError
	if errors.As(err, &se) && !errors.Is(err, c.unavailable) {
		return fmt.Errorf("%w: %w", c.unavailable, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.Failure(resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

// Failure reports a provider-side error. Callers use it for error
// payloads that arrive with a 200 status too.
func (c *Client) Failure(code int, msg string) error {
	se := &StatusError{Provider: c.name, Code: code, Message: msg}
	if c.strict && code < http.StatusInternalServerError && code != http.StatusTooManyRequests {
		return se
	}
	return fmt.Errorf("%w: %w", c.unavailable, se)
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", c.timeout, c.name, err)
	}
	return fmt.Errorf("%w: %s: %w", c.unavailable, c.name, err)
}

// StatusError is a failed reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Message)
}

// errorMessage pulls a readable message out of an error body. Providers
// send either {"error":"text"} or {"error":{"message":"text"}}.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil && text != "" {
			return text
		}
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
	}
	return strings.TrimSpace(string(body))
}
