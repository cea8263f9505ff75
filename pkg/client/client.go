// Package client provides the HTTP client for the tally REST API.
//
// Every call is stateless: credentials are read from the configured
// csrf.Source for each state-changing request and no response is cached.
// Concurrent calls are allowed but their responses may arrive in any order.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/ramarlina/tally-cli/pkg/csrf"
)

var log = logging.Logger("tally/client")

// DefaultTimeout bounds a single request unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the tally API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials csrf.Source
	timeout     time.Duration
	userAgent   string
	metrics     *metrics
}

// Option configures the client.
type Option func(*Client)

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  "tally-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentials sets where CSRF tokens are read from.
func WithCredentials(src csrf.Source) Option {
	return func(c *Client) {
		c.credentials = src
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Credentials returns the configured credential source.
func (c *Client) Credentials() csrf.Source {
	return c.credentials
}

// request describes a single call.
type request struct {
	method   string
	path     string
	resource string
	query    url.Values
	accept   string

	body        []byte
	contentType string
	csrf        bool
}

// Get performs a GET without CSRF headers and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, &request{
		method:   http.MethodGet,
		path:     path,
		resource: path,
		query:    query,
	}, out)
}

// Send performs a state-changing request with a JSON body. The body is
// serialized up front, a nil body is sent as JSON null.
func (c *Client) Send(ctx context.Context, method, path string, body any, out any) error {
	return c.send(ctx, method, path, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path, resource string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return Normalize(fmt.Errorf("marshal request body: %w", err))
	}
	return c.do(ctx, &request{
		method:   method,
		path:     path,
		resource: resource,
		body:     data,
		csrf:     true,
	}, out)
}

// SendForm posts an url-encoded form, as browser login pages expect.
func (c *Client) SendForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        path,
		resource:    path,
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		csrf:        true,
	}, out)
}

// SendMultipart posts a single file as multipart/form-data. This is the only
// request whose Content-Type is not JSON.
func (c *Client) SendMultipart(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	return c.sendMultipart(ctx, path, path, field, filename, r, out)
}

func (c *Client) sendMultipart(ctx context.Context, path, resource, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return Normalize(fmt.Errorf("create form file: %w", err))
	}
	if _, err := io.Copy(part, r); err != nil {
		return Normalize(fmt.Errorf("read upload: %w", err))
	}
	if err := w.Close(); err != nil {
		return Normalize(fmt.Errorf("close multipart writer: %w", err))
	}

	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        path,
		resource:    resource,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		csrf:        true,
	}, out)
}

// PageBody fetches an HTML page (for meta tags) and returns its body.
func (c *Client) PageBody(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.do(ctx, &request{
		method:   http.MethodGet,
		path:     path,
		resource: path,
		accept:   "text/html",
	}, &body)
	return body, err
}

func (c *Client) do(ctx context.Context, r *request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	status, err := c.roundTrip(ctx, r, out)
	took := time.Since(start)

	c.metrics.observe(r, status, err, took)

	if err != nil {
		apiErr := Normalize(err)
		log.Debugw("request failed",
			"method", r.method,
			"path", r.path,
			"kind", apiErr.Kind.String(),
			"status", apiErr.Status,
			"took", took,
		)
		return apiErr
	}

	log.Debugw("request",
		"method", r.method,
		"path", r.path,
		"status", status,
		"took", took,
	)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, r *request, out any) (int, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return 0, &APIError{Kind: KindClient, Err: fmt.Errorf("build request: %w", err)}
	}
	if s := req.URL.Scheme; (s != "http" && s != "https") || req.URL.Host == "" {
		return 0, &APIError{Kind: KindClient, Err: fmt.Errorf("invalid API URL %q, expected http(s)://host[:port]", c.baseURL)}
	}

	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.csrf {
		for k, v := range csrf.Headers(c.credentials) {
			req.Header[k] = v
		}
	}
	if r.contentType != "" {
		req.Header.Set(csrf.HeaderContentType, r.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &APIError{Kind: KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fromResponse(resp.StatusCode, data)
	}

	if err := decode(data, out); err != nil {
		return resp.StatusCode, &APIError{Kind: KindClient, Err: fmt.Errorf("decode response: %w", err)}
	}

	return resp.StatusCode, nil
}

func decode(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
