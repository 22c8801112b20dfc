package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for JSON calls to the provisioning gateway and other APIs.
type Client struct {
	r *resty.Client
}

// Response is the status and raw body of a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestOption tweaks a single request.
type RequestOption func(*resty.Request)

// Bearer sets an Authorization bearer token on the request.
func Bearer(token string) RequestOption {
	return func(r *resty.Request) {
		if token != "" {
			r.SetAuthToken(token)
		}
	}
}

// Header sets one request header.
func Header(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

// New creates a new HTTP client with sensible defaults. Retries only fire on
// transport errors; a status code is always returned to the caller.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{r: r}
}

// WithBaseURL prefixes every relative request path.
func (c *Client) WithBaseURL(url string) *Client {
	c.r.SetBaseURL(url)
	return c
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithRetries overrides the retry count.
func (c *Client) WithRetries(n int) *Client {
	c.r.SetRetryCount(n)
	return c
}

// WithProxy routes requests through the given proxy URL when set.
func (c *Client) WithProxy(proxyURL string) *Client {
	if proxyURL != "" {
		c.r.SetProxy(proxyURL)
	}
	return c
}

// WithInsecureSkipVerify disables TLS verification.
func (c *Client) WithInsecureSkipVerify() *Client {
	c.r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	return c
}

// Do sends a request with an optional JSON body.
func (c *Client) Do(ctx context.Context, method, url string, body interface{}, opts ...RequestOption) (*Response, error) {
	req := c.r.R().SetContext(ctx).SetHeader("Accept", "application/json")
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, opts...)
}

// Post sends a POST request with JSON body.
func (c *Client) Post(ctx context.Context, url string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, url, body, opts...)
}

// PostForm sends a POST request with form data.
func (c *Client) PostForm(ctx context.Context, url string, data map[string]string, opts ...RequestOption) (*Response, error) {
	req := c.r.R().SetContext(ctx).SetFormData(data)
	for _, opt := range opts {
		opt(req)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

// Put sends a PUT request with JSON body.
func (c *Client) Put(ctx context.Context, url string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, url, body, opts...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, url, nil, opts...)
}
