package client

import (
	"time"

	"github.com/Sternrassler/esi-request-cache/pkg/transport"
)

// Descriptor identifies a request. Endpoint is the logical cache namespace;
// URL is the full address including query.
type Descriptor struct {
	Endpoint   string
	URL        string
	Method     transport.Method
	Payload    any
	Credential string
}

// Options control one Execute call.
type Options struct {
	// ExpectBody decodes the response body into Outcome.Data. When false the
	// body is ignored and an empty body is cached.
	ExpectBody bool

	// SuccessCodes are accepted in addition to DefaultSuccessCodes.
	SuccessCodes []int

	// CacheTTL is the cache lifetime when the response has no usable
	// Expires header.
	CacheTTL time.Duration

	// MaxRetries is the number of attempts after the first.
	MaxRetries int
}

// Option configures a Request call.
type Option func(*request)

type request struct {
	desc Descriptor
	opts Options
}

// WithMethod sets the HTTP method (default GET).
func WithMethod(m transport.Method) Option {
	return func(r *request) { r.desc.Method = m }
}

// WithPayload sets a JSON request body.
func WithPayload(payload any) Option {
	return func(r *request) { r.desc.Payload = payload }
}

// WithCredential sets the bearer token.
func WithCredential(token string) Option {
	return func(r *request) { r.desc.Credential = token }
}

// WithoutBody skips body decoding.
func WithoutBody() Option {
	return func(r *request) { r.opts.ExpectBody = false }
}

// WithSuccessCodes adds accepted status codes.
func WithSuccessCodes(codes ...int) Option {
	return func(r *request) { r.opts.SuccessCodes = append(r.opts.SuccessCodes, codes...) }
}

// WithCacheTTL sets the fallback cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *request) { r.opts.CacheTTL = ttl }
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(r *request) { r.opts.MaxRetries = n }
}
