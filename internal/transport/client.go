// Package transport provides the shared HTTP plumbing for source
// adapters: a client with a bounded timeout, per-source authentication,
// and JSON response decoding. Remote failures come back as
// *errors.SourceError so the synchronizer can tally them per row
// without aborting a batch.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/apetrov/gamelog/pkg/errors"
)

// DefaultTimeout bounds every request; remote sources that hang are a
// source-unavailable condition, not a stuck synchronization run.
const DefaultTimeout = 10 * time.Second

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth applies no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// QueryAuth passes credentials as query parameters (the Steam Web API
// scheme: key and steamid on every call).
type QueryAuth struct {
	Params map[string]string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	for param, value := range a.Params {
		query.Set(param, value)
	}
	req.URL.RawQuery = query.Encode()
}

// Client provides HTTP client functionality with authentication and
// per-source identification for error reporting.
type Client struct {
	http    *http.Client
	auth    Authenticator
	source  string
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithAuth sets the authenticator applied to every request.
func WithAuth(auth Authenticator) Option {
	return func(c *Client) {
		c.auth = auth
	}
}

// WithHeaders sets extra headers applied to every request. Used by the
// review-aggregator adapter, whose origin rejects default Go user agents.
func WithHeaders(headers http.Header) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// New creates a transport client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: DefaultTimeout},
		auth:   &NoAuth{},
		source: source,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure applies additional options after construction. Adapters use
// it to forward configured settings (timeout) into their transport.
func (c *Client) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapSource(c.source, url, err)
	}
	return c.do(req)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", c.source+" request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapSource(c.source, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do applies authentication and headers, then executes the request.
// Transport-level failures and 5xx/429 answers are source-unavailable.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)
	for header, values := range c.headers {
		for _, value := range values {
			req.Header.Set(header, value)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapSource(c.source, req.URL.Path, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, &errors.SourceError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Message:    string(body),
		}
	}
	return resp, nil
}

// DecodeResponse decodes a JSON response into the target structure and
// closes the body. Non-200 answers surface as SourceError.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", c.source+" response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &errors.SourceError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Message:    string(body[:min(len(body), 512)]),
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", c.source+" response", err)
	}

	return nil
}
