// Package api is the HTTP service layer for the hospital REST backend.
// Every call takes a bearer token and returns either the parsed body or
// an *Error classified into one of five kinds.
package api

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

	"github.com/google/uuid"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "hospital-console"
	maxErrorBody     = 200
)

// Client issues authenticated REST calls against one backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	accept string
	public bool // no token required
}

// do performs one request and returns the raw response body of a 2xx reply.
func (c *Client) do(ctx context.Context, token string, req call) ([]byte, error) {
	if !req.public {
		if err := checkToken(req.op, token); err != nil {
			return nil, err
		}
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, requestErr(req.op, fmt.Errorf("marshal: %w", err))
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, requestErr(req.op, err)
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkErr(req.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkErr(req.op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    KindServer,
			Op:      req.op,
			Status:  resp.StatusCode,
			Message: extractMessage(resp.StatusCode, data),
		}
	}
	return data, nil
}

// extractMessage pulls a human readable message out of an error body.
func extractMessage(status int, body []byte) string {
	var obj map[string]any
	if json.Unmarshal(body, &obj) == nil {
		for _, key := range []string{"message", "error", "detail", "msg"} {
			switch v := obj[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any:
				if m, ok := v["message"].(string); ok && m != "" {
					return m
				}
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody] + "..."
		}
		return text
	}
	return http.StatusText(status)
}

func checkToken(op, token string) error {
	if strings.TrimSpace(token) == "" {
		return authMissing(op)
	}
	return nil
}

// precheck rejects a call before any request is made: a missing token
// wins over a missing id.
func precheck(op, token, name string, id ID) error {
	if err := checkToken(op, token); err != nil {
		return err
	}
	if strings.TrimSpace(string(id)) == "" {
		return validation(op, name+" is required")
	}
	return nil
}

func idPath(prefix string, id ID) string {
	return prefix + "/" + url.PathEscape(string(id))
}

// decodeItem decodes a single resource, unwrapping {"<key>": {...}} or
// {"data": {...}} envelopes when present.
func decodeItem[T any](op string, data []byte, keys ...string) (T, error) {
	var out T
	if inner := unwrap(data, '{', keys...); inner != nil {
		data = inner
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, requestErr(op, fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

// decodeList decodes a collection sent either bare or inside an envelope.
// A missing collection decodes as empty, never nil.
func decodeList[T any](op string, data []byte, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] != '[' {
		inner := unwrap(trimmed, '[', keys...)
		if inner == nil {
			return []T{}, nil
		}
		trimmed = inner
	}
	out := []T{}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, requestErr(op, fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

// unwrap returns the value under the first of keys (then "data", "items",
// "results") whose JSON starts with open.
func unwrap(data []byte, open byte, keys ...string) []byte {
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return nil
	}
	candidates := append(append([]string{}, keys...), "data", "items", "results")
	for _, key := range candidates {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == open {
			return raw
		}
	}
	return nil
}

// Health calls GET /api/health. The token is optional.
func (c *Client) Health(ctx context.Context, token string) (*HealthResponse, error) {
	const op = "health"
	data, err := c.do(ctx, token, call{op: op, method: http.MethodGet, path: "/api/health", public: true})
	if err != nil {
		return nil, err
	}
	h, err := decodeItem[HealthResponse](op, data)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
