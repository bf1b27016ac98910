// Package client provides the ESI request executor: fingerprinted response
// caching, bounded retries and success classification in front of a
// Transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/esi-request-cache/pkg/cache"
	"github.com/Sternrassler/esi-request-cache/pkg/fingerprint"
	"github.com/Sternrassler/esi-request-cache/pkg/logging"
	"github.com/Sternrassler/esi-request-cache/pkg/transport"
)

// HeaderObserver receives the headers of every completed exchange.
// ratelimit.Tracker implements it.
type HeaderObserver interface {
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// Client executes requests against the upstream API.
type Client struct {
	store     cache.Store
	transport transport.Transport
	observer  HeaderObserver
	config    Config
	logger    zerolog.Logger
	now       func() time.Time
	jitter    func() float64
}

// Config holds the client configuration.
type Config struct {
	// Store persists responses (REQUIRED).
	Store cache.Store

	// User-Agent header (REQUIRED by ESI)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// RetryBackoff is the delay before the first retry, doubling for each
	// further retry up to MaxBackoff. Zero retries immediately.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// Transport overrides the HTTP transport built from UserAgent and
	// Timeout. HTTPClient is used by that default transport.
	Transport  transport.Transport
	HTTPClient *http.Client

	// HeaderObserver is optional.
	HeaderObserver HeaderObserver

	// Logger defaults to the "esi-client" component logger.
	Logger *zerolog.Logger

	// Now is the clock used for sweeps, lookups and expiry (default
	// time.Now).
	Now func() time.Time
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(store cache.Store, userAgent string) Config {
	return Config{
		Store:        store,
		UserAgent:    userAgent,
		Timeout:      transport.DefaultTimeout,
		RetryBackoff: 0,
		MaxBackoff:   30 * time.Second,
	}
}

// New creates a new ESI client.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	if cfg.RetryBackoff < 0 {
		return nil, fmt.Errorf("retry_backoff must be >= 0 (got %s)", cfg.RetryBackoff)
	}

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = logging.NewLogger(logging.ComponentClient)
	}

	tr := cfg.Transport
	if tr == nil {
		tr = transport.NewHTTP(cfg.HTTPClient, cfg.UserAgent, cfg.Timeout)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		store:     cfg.Store,
		transport: tr,
		observer:  cfg.HeaderObserver,
		config:    cfg,
		logger:    logger,
		now:       now,
		jitter:    defaultJitter,
	}, nil
}

// Request performs a request with the caller-facing defaults: GET, no
// payload, no credential, body expected, no extra success codes, no TTL and
// no retries.
func (c *Client) Request(ctx context.Context, endpoint, url string, opts ...Option) Outcome {
	r := request{
		desc: Descriptor{Endpoint: endpoint, URL: url},
		opts: Options{ExpectBody: true},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return c.Execute(ctx, r.desc, r.opts)
}

// Execute serves the descriptor from the cache when a live entry exists and
// otherwise performs up to MaxRetries+1 attempts. An accepted response is
// cached under the classified expiry. Every path returns an Outcome.
func (c *Client) Execute(ctx context.Context, desc Descriptor, opts Options) Outcome {
	logger := c.logger.With().
		Str("request_id", uuid.NewString()).
		Str("endpoint", desc.Endpoint).
		Logger()

	timer := prometheus.NewTimer(esiRequestDuration.WithLabelValues(desc.Endpoint))
	defer timer.ObserveDuration()

	// Step 1: Sweep expired entries
	if removed, err := c.store.Sweep(ctx, c.now()); err != nil {
		logger.Warn().Err(err).Msg("Cache sweep failed")
	} else if removed > 0 {
		logger.Debug().Int64("removed", removed).Msg("Swept expired cache entries")
	}

	// Step 2: Fingerprint
	fp, err := fingerprint.Of(desc.URL, desc.Method.String(), desc.Payload, desc.Credential)
	if err != nil {
		// The payload cannot be encoded, so neither can the request body.
		// Skip the cache and let the attempts report the failure.
		logger.Warn().Err(err).Msg("Fingerprint failed, bypassing cache")
	}
	if fp != "" {
		logger = logger.With().Str("fingerprint", fp).Logger()
	}

	// Step 3: Check Cache
	if fp != "" {
		entry, err := c.store.Lookup(ctx, desc.Endpoint, fp, c.now())
		switch {
		case err == nil:
			logger.Debug().Msg("Cache hit")
			esiRequestsTotal.WithLabelValues(desc.Endpoint, statusCacheHit).Inc()
			return Outcome{Success: true, Data: decodeBody(entry.Body)}
		case errors.Is(err, cache.ErrCacheMiss):
			logger.Debug().Msg("Cache miss")
		default:
			logger.Warn().Err(err).Msg("Cache lookup failed, treating as miss")
		}
	}

	// Step 4: Attempts
	attempts := opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	failure := &Failure{Error: failureMessage}
	var (
		cause    error
		errClass ErrorClass
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			esiRetriesTotal.WithLabelValues(string(errClass)).Inc()

			backoff := backoffFor(attempt-1, c.config.RetryBackoff, c.config.MaxBackoff, c.jitter)
			if backoff > 0 {
				esiRetryBackoffSeconds.WithLabelValues(string(errClass)).Observe(backoff.Seconds())
			}
			logger.Warn().
				Int("attempt", attempt).
				Str("error_class", string(errClass)).
				Dur("backoff", backoff).
				Msg("Retrying request")

			if err := sleepContext(ctx, backoff); err != nil {
				return c.cancelled(logger, desc.Endpoint, attempt-1, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return c.cancelled(logger, desc.Endpoint, attempt-1, err)
		}

		resp, err := c.transport.RoundTrip(ctx, transport.Request{
			URL:        desc.URL,
			Method:     desc.Method,
			Payload:    desc.Payload,
			Credential: desc.Credential,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return c.cancelled(logger, desc.Endpoint, attempt, err)
			}

			errClass = ErrorClassNetwork
			esiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			esiRequestsTotal.WithLabelValues(desc.Endpoint, statusNetworkError).Inc()
			logger.Warn().Err(err).Int("attempt", attempt).Msg("HTTP request failed")

			msg := err.Error()
			failure.LastException = &msg
			cause = err
			continue
		}

		c.observe(ctx, logger, resp.Header)
		esiRequestsTotal.WithLabelValues(desc.Endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		cl := Classify(resp.StatusCode, resp.Header, opts.SuccessCodes, opts.CacheTTL, c.now())
		if cl.ExpiresErr != nil {
			logger.Debug().Err(cl.ExpiresErr).Msg("Unparsable Expires header, using TTL")
		}

		if cl.Accepted {
			body := resp.Body
			var data any
			if opts.ExpectBody {
				data = decodeBody(body)
			} else {
				body = ""
			}

			if fp != "" {
				c.persist(ctx, logger, cache.Entry{
					Endpoint:    desc.Endpoint,
					Fingerprint: fp,
					Expiration:  cl.Expiry,
					Body:        body,
				})
			}

			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return Outcome{Success: true, Data: data}
		}

		errClass = cl.Class
		esiErrorsTotal.WithLabelValues(string(errClass)).Inc()
		logger.Warn().
			Int("attempt", attempt).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("ESI request error")

		status := resp.StatusCode
		text := resp.Body
		failure.LastStatus = &status
		failure.LastResponse = &text
		cause = &ESIError{StatusCode: status, ErrorClass: errClass, Body: text}
	}

	// All attempts exhausted
	esiRetryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
	logger.Error().
		Int("attempts", attempts).
		Str("error_class", string(errClass)).
		Msg("Request attempts exhausted")

	return Outcome{
		Success: false,
		Data:    failure,
		err: &RequestError{
			Endpoint: desc.Endpoint,
			Attempts: attempts,
			Reason:   ErrRequestFailed,
			Cause:    cause,
		},
	}
}

// cancelled builds the Outcome for a call ended by its context.
func (c *Client) cancelled(logger zerolog.Logger, endpoint string, attempts int, cause error) Outcome {
	esiRequestsTotal.WithLabelValues(endpoint, statusCancelled).Inc()
	logger.Warn().Err(cause).Int("attempts", attempts).Msg("Request cancelled")

	msg := cause.Error()
	return Outcome{
		Success: false,
		Data: &Failure{
			Error:         cancelledMessage,
			LastException: &msg,
		},
		err: &RequestError{
			Endpoint: endpoint,
			Attempts: attempts,
			Reason:   ErrCancelled,
			Cause:    cause,
		},
	}
}

// persist writes the entry. Failures never reach the caller.
func (c *Client) persist(ctx context.Context, logger zerolog.Logger, entry cache.Entry) {
	err := c.store.Insert(ctx, entry)
	switch {
	case err == nil:
		logger.Debug().
			Dur("ttl", entry.TTL(c.now())).
			Msg("Cached response")
	case errors.Is(err, cache.ErrDuplicateEntry):
		logger.Debug().Msg("Response already cached by a concurrent request")
	default:
		logger.Warn().Err(err).Msg("Failed to cache response")
	}
}

// observe hands response headers to the HeaderObserver, if any.
func (c *Client) observe(ctx context.Context, logger zerolog.Logger, headers http.Header) {
	if c.observer == nil {
		return
	}
	if err := c.observer.UpdateFromHeaders(ctx, headers); err != nil {
		logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}
}

// Store returns the cache store.
func (c *Client) Store() cache.Store {
	return c.store
}
