// Package client talks to the backend that owns a dependency graph.
//
// The backend serves the graph description at {base}/graph.json and accepts
// edge mutations at {base}/edge/{from}/{to} (PUT to create, DELETE to
// remove). Identities are percent-encoded as single path segments, so
// folder-qualified names like "team/build" survive the trip.
//
// Mutations are never retried. A non-2xx answer becomes a
// [errors.ErrCodeBackendRejected] error whose user message is the response
// body, which is what the viewer shows.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/observability"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of an error body is kept for display.
const maxBodyBytes = 4 << 10

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Detail is the human-readable failure: the body, or the status text when
// the backend sent none.
func (e *StatusError) Detail() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// Client is a backend client. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.headers["Authorization"] = "Bearer " + token
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse backend URL")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: DefaultTimeout},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// GraphURL returns the location of the graph description.
func (c *Client) GraphURL() string {
	return c.base.String() + "graph.json"
}

// EdgePath returns the escaped mutation path for an edge, relative to the
// backend root.
func EdgePath(from, to string) string {
	return "edge/" + escapeSegment(from) + "/" + escapeSegment(to)
}

// escapeSegment escapes an identity as one path segment. Dot segments are
// percent-encoded so no URL resolver treats them as navigation.
func escapeSegment(s string) string {
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

// FetchGraphRaw downloads graph.json without decoding it.
func (c *Client) FetchGraphRaw(ctx context.Context) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "graph.json")
	if err != nil {
		return nil, fmt.Errorf("fetch graph: %w", err)
	}
	return body, nil
}

// FetchGraph downloads and validates the graph description.
func (c *Client) FetchGraph(ctx context.Context) (*graph.Description, error) {
	data, err := c.FetchGraphRaw(ctx)
	if err != nil {
		return nil, err
	}
	return graph.UnmarshalDescription(data)
}

// PutEdge creates an edge between two backend identities.
func (c *Client) PutEdge(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPut, EdgePath(from, to)); err != nil {
		return fmt.Errorf("put edge %s -> %s: %w", from, to, err)
	}
	return nil
}

// DeleteEdge removes an edge between two backend identities.
func (c *Client) DeleteEdge(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, EdgePath(from, to)); err != nil {
		return fmt.Errorf("delete edge %s -> %s: %w", from, to, err)
	}
	return nil
}

func validatePair(from, to string) error {
	if err := errors.ValidateIdentity(from); err != nil {
		return err
	}
	return errors.ValidateIdentity(to)
}

func (c *Client) do(ctx context.Context, method, rel string) ([]byte, error) {
	// rel is appended verbatim; reference resolution would collapse
	// escaped identities such as "..".
	target := *c.base
	target.RawQuery, target.Fragment = "", ""
	target.RawPath = c.base.EscapedPath() + rel
	p, err := url.PathUnescape(target.RawPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build %s path", method)
	}
	target.Path = p

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if method != http.MethodGet {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, target.Host, target.EscapedPath())
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, target.Host, target.EscapedPath(), err)
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, target.EscapedPath())
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "backend unreachable")
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, method, target.Host, target.EscapedPath(), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(method, target.EscapedPath(), resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read response")
	}
	return body, nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	se := &StatusError{
		Method: method,
		Path:   path,
		Code:   resp.StatusCode,
		Body:   string(bytes.TrimSpace(raw)),
	}
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return errors.Wrap(errors.ErrCodeNotFound, se, "%s", se.Detail())
	}
	return errors.Wrap(errors.ErrCodeBackendRejected, se, "%s", se.Detail())
}
