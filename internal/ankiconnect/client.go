// Package ankiconnect is a thin client for the AnkiConnect add-on's HTTP API.
//
// Every call is a single POST of {action, version, params} to a local endpoint.
// There is no retry and no caching: each Call is a fresh round trip bounded by
// the client timeout.
package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultURL     = "http://localhost:8765"
	DefaultVersion = 6
	DefaultTimeout = 10 * time.Second
)

// Client issues actions against an AnkiConnect endpoint.
type Client struct {
	url     string
	version int
	timeout time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the endpoint (default http://localhost:8765).
func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithVersion overrides the API version sent with every action.
func WithVersion(v int) Option {
	return func(c *Client) {
		if v > 0 {
			c.version = v
		}
	}
}

// WithTimeout bounds each call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		version: DefaultVersion,
		timeout: DefaultTimeout,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Call performs one action and returns the raw `result` field. A null or
// absent result comes back as nil with no error. Failures are always *Error.
func (c *Client) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Action: action, Version: c.version, Params: params})
	if err != nil {
		return nil, &Error{Kind: KindMalformed, Action: action, URL: c.url, Detail: err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Action: action, URL: c.url, Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", c.timeout)
		}
		logrus.WithFields(logrus.Fields{"action": action, "elapsed": time.Since(start)}).WithError(err).Debug("ankiconnect call failed")
		return nil, &Error{Kind: KindUnreachable, Action: action, URL: c.url, Detail: detail, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindMalformed, Action: action, URL: c.url, Detail: "HTTP " + resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Action: action, URL: c.url, Detail: err.Error(), Err: err}
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Kind: KindMalformed, Action: action, URL: c.url, Detail: err.Error(), Err: err}
	}
	logrus.WithFields(logrus.Fields{"action": action, "elapsed": time.Since(start)}).Debug("ankiconnect call")

	if msg, ok := errorText(out.Error); ok {
		return nil, &Error{Kind: KindRejected, Action: action, URL: c.url, Detail: msg}
	}
	if isNull(out.Result) {
		return nil, nil
	}
	return out.Result, nil
}

// CallInto performs an action and decodes its result into out. A null result
// leaves out untouched.
func (c *Client) CallInto(ctx context.Context, action string, params, out any) error {
	raw, err := c.Call(ctx, action, params)
	if err != nil {
		return err
	}
	if raw == nil || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindMalformed, Action: action, URL: c.url, Detail: fmt.Sprintf("decode %s result: %v", action, err), Err: err}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// errorText reports whether the backend error field is set. Only a truthy
// value counts: null, false, 0, "", [] and {} mean no error.
func errorText(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(bytes.TrimSpace(raw)), true
	}
	switch e := v.(type) {
	case string:
		return e, e != ""
	case bool:
		return "true", e
	case float64:
		return string(bytes.TrimSpace(raw)), e != 0
	case []any:
		return string(bytes.TrimSpace(raw)), len(e) > 0
	case map[string]any:
		return string(bytes.TrimSpace(raw)), len(e) > 0
	}
	return "", false
}
