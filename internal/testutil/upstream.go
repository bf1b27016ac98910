// Package testutil provides testing utilities for the ESI request cache.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Response defines one scripted upstream response.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is what the upstream saw for one request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// MockUpstream is a scripted ESI-like server. Each path replays its script
// in order and repeats the last response once the script is used up.
type MockUpstream struct {
	server *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]Response
	served   map[string]int
	requests []RecordedRequest
}

// NewMockUpstream starts a new mock upstream.
func NewMockUpstream() *MockUpstream {
	m := &MockUpstream{
		scripts: make(map[string][]Response),
		served:  make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Client returns an HTTP client for the mock server.
func (m *MockUpstream) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Script sets the responses for a path, replacing any earlier script.
func (m *MockUpstream) Script(path string, responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
	m.served[path] = 0
}

// RequestCount returns the number of requests received for a path.
func (m *MockUpstream) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// TotalRequests returns the number of requests received on all paths.
func (m *MockUpstream) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, if any.
func (m *MockUpstream) LastRequest() (RecordedRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	script, ok := m.scripts[r.URL.Path]
	var resp Response
	if ok && len(script) > 0 {
		i := m.served[r.URL.Path]
		if i >= len(script) {
			i = len(script) - 1
		}
		resp = script[i]
		m.served[r.URL.Path]++
	}
	m.mu.Unlock()

	if !ok || len(script) == 0 {
		resp = NewHealthyResponse(`{"status":"ok"}`)
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// esiHeaders returns the error-limit headers ESI attaches to every response.
func esiHeaders(remain, reset string) map[string]string {
	return map[string]string{
		"X-ESI-Error-Limit-Remain": remain,
		"X-ESI-Error-Limit-Reset":  reset,
		"Content-Type":             "application/json; charset=utf-8",
	}
}

// NewHealthyResponse creates a standard 200 OK response with ESI headers
// and no Expires header.
func NewHealthyResponse(data string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    esiHeaders("100", "60"),
	}
}

// NewExpiringResponse creates a 200 OK response carrying an Expires header.
func NewExpiringResponse(data string, expires time.Time) Response {
	resp := NewHealthyResponse(data)
	resp.Headers["Expires"] = expires.UTC().Format(http.TimeFormat)
	return resp
}

// NewNoContentResponse creates a 204 No Content response.
func NewNoContentResponse() Response {
	return Response{
		StatusCode: http.StatusNoContent,
		Headers:    esiHeaders("100", "60"),
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() Response {
	return Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"Rate limit exceeded"}`,
		Headers:    esiHeaders("5", "30"),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"Internal server error"}`,
		Headers:    esiHeaders("95", "60"),
	}
}

// NewESIRateLimitResponse creates a 520 ESI-specific rate limit response.
func NewESIRateLimitResponse() Response {
	return Response{
		StatusCode: 520, // ESI-specific rate limit
		Body:       `{"error":"ESI rate limit exceeded"}`,
		Headers:    esiHeaders("10", "120"),
	}
}
