package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/loykin/tracklink/internal/link"
)

// Client provides HTTP client functionality to communicate with a tracklink daemon.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:4000/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new tracklink API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/links", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// CreateLink creates a tracking link; name may be empty to get a default.
func (c *Client) CreateLink(ctx context.Context, name string) (CreateResponse, error) {
	var out CreateResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/links", nameRequest{Name: name}, &out)
	return out, err
}

// Links lists all tracking links.
func (c *Client) Links(ctx context.Context) ([]link.Link, error) {
	var out []link.Link
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/links", nil, &out)
	return out, err
}

// Link fetches one link by id.
func (c *Client) Link(ctx context.Context, id string) (link.Link, error) {
	var out link.Link
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/links/"+id, nil, &out)
	return out, err
}

// RenameLink updates the display name of a link.
func (c *Client) RenameLink(ctx context.Context, id, name string) (link.Link, error) {
	var out link.Link
	err := c.doJSON(ctx, http.MethodPut, c.baseURL+"/links/"+id, nameRequest{Name: name}, &out)
	return out, err
}

// DeleteLink removes a link.
func (c *Client) DeleteLink(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.baseURL+"/links/"+id, nil, nil)
}

// History returns the position history of a link in ingestion order.
func (c *Client) History(ctx context.Context, id string) ([]link.Sample, error) {
	var out []link.Sample
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/links/"+id+"/history", nil, &out)
	return out, err
}

// Ingest pushes one position report for a link over HTTP.
func (c *Client) Ingest(ctx context.Context, id string, coords link.Coords) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/links/"+id+"/location", coords, nil)
}

// doJSON performs a request with optional JSON body and decodes the response
// into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
