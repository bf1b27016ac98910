// Package transport performs single HTTP exchanges against the upstream API.
//
// A Transport never retries and never caches; it turns a Request into either
// a completed Response (any status code) or an *Error describing why no
// response was obtained.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnsupportedMethod is returned for methods outside the Method enum.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Request describes one exchange.
type Request struct {
	URL    string
	Method Method

	// Payload is JSON-encoded as the request body when non-nil.
	Payload any

	// Credential is sent as a bearer token when non-empty.
	Credential string
}

// Response is a completed exchange. Body holds the full raw body text.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
}

// Transport performs a single exchange.
type Transport interface {
	RoundTrip(ctx context.Context, req Request) (*Response, error)
}

// Error is a failure to obtain a response: encoding the payload, dialing,
// timing out or reading the body.
type Error struct {
	// Op is the failed step: "encode", "request", "send" or "read".
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a deadline.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
