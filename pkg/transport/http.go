package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one exchange when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// HTTP is a Transport on net/http.
type HTTP struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTP creates an HTTP transport. A nil client selects a fresh
// http.Client; a non-positive timeout selects DefaultTimeout. The timeout
// covers the whole exchange including reading the body.
func NewHTTP(client *http.Client, userAgent string, timeout time.Duration) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// RoundTrip performs the exchange. Every status code is a completed
// Response; only failures to obtain one are errors.
func (t *HTTP) RoundTrip(ctx context.Context, req Request) (*Response, error) {
	if !req.Method.Valid() {
		return nil, &Error{Op: "request", URL: req.URL, Err: ErrUnsupportedMethod}
	}

	var body io.Reader
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, &Error{Op: "encode", URL: req.URL, Err: err}
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), req.URL, body)
	if err != nil {
		return nil, &Error{Op: "request", URL: req.URL, Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if req.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: "send", URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "read", URL: req.URL, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(raw),
	}, nil
}
