package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"perfkit/internal/core"
	"perfkit/internal/ratelimit"
)

const (
	// maxBodySize limits how much of a response body is kept.
	maxBodySize = 10 * 1024 * 1024 // 10MB
	// maxDebugBodySize limits response body logged in verbose mode.
	maxDebugBodySize = 4096
)

// TokenFunc returns a bearer token for the next request.
type TokenFunc func(ctx context.Context) (string, error)

// Request describes one call relative to the client's base URL.
type Request struct {
	Name    string // label used in debug output and reported events
	Method  string
	Path    string
	Query   url.Values
	JSON    any        // encoded as the body when set
	Form    url.Values // encoded as the body when set and JSON is nil
	Headers map[string]string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	BytesSent  int64
	BytesRecv  int64
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues requests against one base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.RateLimiter
	debug   *DebugLogger
	retry   RetryPolicy
	bearer  TokenFunc
	clock   core.Clock
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter makes every attempt wait on limiter first.
func WithRateLimiter(limiter *ratelimit.RateLimiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithDebug dumps requests and responses to d.
func WithDebug(d *DebugLogger) Option {
	return func(c *Client) { c.debug = d }
}

// WithRetry enables retries of transport errors and retryable statuses.
func WithRetry(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithBearer sets an Authorization header from fn on every request.
func WithBearer(fn TokenFunc) Option {
	return func(c *Client) { c.bearer = fn }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used for retry backoff.
func WithClock(clock core.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 1000,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		clock: core.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req, retrying according to the client's RetryPolicy. A non-2xx
// status is returned as a Response, not as an error. Errors are transport
// failures, context cancellation, or a failed token lookup.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding body: %w", req.Name, err)
	}

	b := c.retry.newBackOff(ctx)
	for {
		resp, err := c.attempt(ctx, req, body, contentType)
		if !retryable(ctx, resp, err) {
			return resp, err
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return resp, err
		}
		if serr := c.clock.Sleep(ctx, wait); serr != nil {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
	}
}

func (c *Client) attempt(ctx context.Context, req Request, body []byte, contentType string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	actorID := core.ActorIDFromContext(ctx)
	start := time.Now()

	httpReq, err := c.newRequest(ctx, req, body, contentType)
	if err != nil {
		c.debug.LogError(actorID, req.Name, err.Error(), time.Since(start))
		return nil, err
	}

	c.debug.LogRequest(actorID, req.Name, httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		duration := time.Since(start)
		c.debug.LogError(actorID, req.Name, err.Error(), duration)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	_, _ = io.Copy(io.Discard, httpResp.Body) // drain errors are ignorable
	duration := time.Since(start)
	if err != nil {
		c.debug.LogError(actorID, req.Name, err.Error(), duration)
		return nil, fmt.Errorf("%s %s: reading body: %w", req.Method, req.Path, err)
	}

	debugBody := respBody
	if len(debugBody) > maxDebugBodySize {
		debugBody = debugBody[:maxDebugBodySize]
	}
	c.debug.LogResponse(actorID, req.Name, httpResp, debugBody, duration)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       respBody,
		Duration:   duration,
		BytesSent:  int64(len(body)),
		BytesRecv:  int64(len(respBody)),
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request, body []byte, contentType string) (*http.Request, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.bearer != nil {
		token, err := c.bearer(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtaining token: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return b, "application/json", nil
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

// IsTransportError reports whether err came from the network or the context
// rather than from building the request.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
