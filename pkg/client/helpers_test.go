package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/esi-request-cache/pkg/cache"
	"github.com/Sternrassler/esi-request-cache/pkg/transport"
)

// testNow is the fixed clock used by unit tests.
var testNow = time.Unix(1_700_000_000, 0)

// step is one scripted transport result.
type step struct {
	resp *transport.Response
	err  error
}

func ok(status int, body string) step {
	return step{resp: &transport.Response{StatusCode: status, Header: http.Header{}, Body: body}}
}

func withHeader(s step, key, value string) step {
	s.resp.Header.Set(key, value)
	return s
}

func fail(err error) step {
	return step{err: err}
}

// scriptedTransport replays steps in order and repeats the last one.
type scriptedTransport struct {
	mu       sync.Mutex
	steps    []step
	requests []transport.Request
}

func (s *scriptedTransport) RoundTrip(ctx context.Context, req transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}}, nil
	}

	i := len(s.requests) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	st := s.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	resp := *st.resp
	return &resp, nil
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// forbiddenTransport fails the test when used.
type forbiddenTransport struct {
	t *testing.T
}

func (f forbiddenTransport) RoundTrip(context.Context, transport.Request) (*transport.Response, error) {
	f.t.Helper()
	f.t.Fatal("transport must not be called")
	return nil, nil
}

// newTestClient builds a client on a fixed clock with logging disabled.
func newTestClient(t *testing.T, store cache.Store, tr transport.Transport) *Client {
	t.Helper()

	logger := zerolog.Nop()
	cfg := DefaultConfig(store, "TestApp/1.0.0 (test@example.com)")
	cfg.Transport = tr
	cfg.Logger = &logger
	cfg.Now = func() time.Time { return testNow }

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}
