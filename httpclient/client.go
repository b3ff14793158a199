package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/artcache/errors"
	"github.com/kbukum/artcache/logger"
	"github.com/kbukum/artcache/resilience"
)

// Client is a configurable HTTP client with optional retry and rate
// limiting. Every error it returns is an *errors.AppError.
type Client struct {
	httpClient *http.Client
	config     Config
	rl         *resilience.RateLimiter
	log        *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. Its Timeout is
// overwritten by Config.Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry notices.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
		config:     cfg,
		rl:         resilience.NewRateLimiter(cfg.RateLimit),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = cfg.Timeout
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Do executes an HTTP request and returns the complete response. On a
// non-2xx answer the response is returned alongside a SERVER_STATUS error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry == nil {
		return c.doOnce(ctx, req)
	}
	retry := *c.config.Retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Log("retrying request", logger.CategoryNetwork, logger.LevelWarn,
			logger.MergeWithError(logger.Fields("path", req.Path, "attempt", attempt, "backoff", backoff.String()), err))
	}
	return resilience.Retry(ctx, retry, func() (*Response, error) {
		return c.doOnce(ctx, req)
	})
}

// GetJSON performs a GET and decodes the JSON body into T. A body that
// does not decode yields a DECODING error.
func GetJSON[T any](ctx context.Context, c *Client, path string, query map[string][]string) (*T, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	var data T
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, errors.Decoding(err)
	}
	return &data, nil
}

// doOnce executes a single attempt behind the rate limiter.
func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, NewTimeoutError(err).AppError()
	}
	resp, err := c.executeRequest(ctx, req)
	if err != nil {
		return resp, err.AppError()
	}
	return resp, nil
}

// executeRequest builds and sends the HTTP request.
func (c *Client) executeRequest(ctx context.Context, req Request) (*Response, *Error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, doErr := c.httpClient.Do(httpReq)
	if doErr != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(doErr)
		}
		return nil, NewConnectionError(doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", readErr))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}
	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, *Error) {
	target := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewInvalidError("encode body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), target, body)
	if err != nil {
		return nil, NewInvalidError("create request", err)
	}
	if httpReq.URL.Host == "" {
		return nil, NewInvalidError(fmt.Sprintf("no host in %q", target), nil)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
