// Package api is the HTTP client for the school-management REST API.
//
// Every call except Login carries "Authorization: Bearer <credential>" when the
// credential store holds one. Responses with a non-2xx status become *Error.
package api

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

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/felixgeelhaar/schoolctl/internal/credential"
	"github.com/felixgeelhaar/schoolctl/internal/log"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "http://localhost:8000"

// Observer receives one call per completed request. status is 0 for
// transport failures.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
}

// Client is the school API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credential.Store
	logger     *log.Logger
	observer   Observer
	requestID  func() string
	userAgent  string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as-is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObserver registers a request observer (metrics)
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithRequestIDFunc overrides X-Request-ID generation
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		c.requestID = fn
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for baseURL that reads its credential from store
func NewClient(baseURL string, store credential.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:     store,
		logger:    log.Nop(),
		requestID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store backing the client
func (c *Client) Store() credential.Store {
	return c.store
}

// Get issues GET path and decodes the JSON body into out (which may be nil)
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues POST path with a JSON body
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

// Patch issues PATCH path with a JSON body
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, out)
}

// Delete issues DELETE path
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	token, err := c.store.Get(ctx)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return fmt.Errorf("failed to read credential: %w", err)
	}

	return c.do(ctx, method, path, reader, contentType, token, out)
}

// do performs the request and normalizes the response
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := c.requestID()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(method, path, 0, elapsed)
		c.logger.DebugContext(ctx, "api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return &Error{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.observe(method, path, resp.StatusCode, elapsed)
	c.logger.DebugContext(ctx, "api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", elapsed)

	return parseResponse(resp, method, path, out)
}

func (c *Client) observe(method, path string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, path, status, elapsed)
	}
}

// parseResponse parses a response body into out, or builds an *Error for non-2xx statuses
func parseResponse(resp *http.Response, method, path string, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Status: statusText(resp), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(method, path, resp, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
