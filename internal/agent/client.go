// Package agent is the node side of the control plane: it submits evidence
// and polls for keying material.
package agent

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

	"meshgate/internal/controlplane/handler"
)

const defaultTimeout = 5 * time.Second

// Benchmark is the evidence payload a node submits.
type Benchmark struct {
	NodeID       string             `json:"node_id"`
	Timestamp    string             `json:"timestamp"`
	SuiteVersion string             `json:"suite_version"`
	Scores       map[string]float64 `json:"scores"`
	Notes        *string            `json:"notes,omitempty"`
	Signature    *string            `json:"signature,omitempty"`
}

// APIError is a non-2xx controller response.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("controller returned %d %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("controller returned %d %s", e.Status, e.Code)
}

// Client calls the controller's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// NewClient creates a client for the controller at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse controller url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("controller url must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL: u.String(),
		http:    http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// SubmitBenchmark posts b for its node.
func (c *Client) SubmitBenchmark(ctx context.Context, b Benchmark) (*handler.SubmitEvidenceResponse, error) {
	var out handler.SubmitEvidenceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/benchmarks/"+url.PathEscape(b.NodeID), b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NodeConfig fetches the node's membership and, when allowed, its key.
func (c *Client) NodeConfig(ctx context.Context, nodeID string) (*handler.NodeConfigResponse, error) {
	var out handler.NodeConfigResponse
	if err := c.do(ctx, http.MethodGet, "/v1/config/"+url.PathEscape(nodeID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Epoch fetches the epoch view.
func (c *Client) Epoch(ctx context.Context) (*handler.EpochResponse, error) {
	var out handler.EpochResponse
	if err := c.do(ctx, http.MethodGet, "/v1/epoch", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) (*handler.HealthResponse, error) {
	var out handler.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope) == nil {
			apiErr.Code = envelope.Error
			apiErr.Description = envelope.ErrorDescription
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
