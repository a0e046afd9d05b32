// Package carrierhttp executes single HTTP exchanges with carrier APIs.
// It builds headers and bodies; it has no knowledge of message semantics.
package carrierhttp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxResponseBytes = 1 << 20 // 1 MB
	ContentTypeJSON         = "application/json"

	truncatedMarker = "...(truncated)"
)

// Auth decorates a request with carrier authentication.
type Auth interface {
	Apply(h http.Header)
}

type bearer string

func (b bearer) Apply(h http.Header) { h.Set("Authorization", "Bearer "+string(b)) }

// Bearer authenticates with "Authorization: Bearer <token>".
func Bearer(token string) Auth { return bearer(token) }

type basic struct{ user, pass string }

func (b basic) Apply(h http.Header) {
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(b.user+":"+b.pass)))
}

// Basic authenticates with HTTP basic auth.
func Basic(user, pass string) Auth { return basic{user: user, pass: pass} }

type headerAuth struct{ name, value string }

func (a headerAuth) Apply(h http.Header) { h.Set(a.name, a.value) }

// Header authenticates with an arbitrary header, for carriers using an API key header.
func Header(name, value string) Auth { return headerAuth{name: name, value: value} }

// Request is one outbound HTTP exchange.
type Request struct {
	Method      string
	URL         string
	ContentType string
	Body        []byte
	Auth        Auth
	// MaxResponseBytes caps how much of the response body is read.
	// Zero means DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Truncated is set when the carrier sent more than MaxResponseBytes;
	// Body then holds only the first MaxResponseBytes.
	Truncated bool
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Excerpt returns at most n bytes of the body as a string.
func (r *Response) Excerpt(n int) string {
	return Truncate(r.Body, n)
}

// BodyText is the whole body read, marked when the read limit cut it.
func (r *Response) BodyText() string {
	if r.Truncated {
		return string(r.Body) + truncatedMarker
	}
	return string(r.Body)
}

type Client struct {
	httpClient *http.Client
}

// NewClient wraps httpClient, or a client with DefaultTimeout when nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{httpClient: httpClient}
}

// Do performs req once. Any failure before a status line is observed, or
// while reading the body, is returned as *domain.TransportError. Non-2xx
// statuses are not errors at this layer.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &domain.TransportError{Op: method, URL: req.URL, Err: fmt.Errorf("build request: %w", err)}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.Auth != nil {
		req.Auth.Apply(httpReq.Header)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Op: method, URL: req.URL, Err: err}
	}
	defer httpResp.Body.Close()

	limit := req.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, &domain.TransportError{
			Op:  method,
			URL: req.URL,
			Err: fmt.Errorf("read response body (status %d): %w", httpResp.StatusCode, err),
		}
	}
	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}
	if int64(len(respBody)) > limit {
		resp.Body = respBody[:limit]
		resp.Truncated = true
	}
	return resp, nil
}

// Truncate shortens b to n bytes for logging, marking the cut.
func Truncate(b []byte, n int) string {
	if n <= 0 || len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + truncatedMarker
}
