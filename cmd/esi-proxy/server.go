package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/esi-request-cache/pkg/cache"
	"github.com/Sternrassler/esi-request-cache/pkg/client"
	"github.com/Sternrassler/esi-request-cache/pkg/fingerprint"
	"github.com/Sternrassler/esi-request-cache/pkg/metrics"
	"github.com/Sternrassler/esi-request-cache/pkg/ratelimit"
	"github.com/Sternrassler/esi-request-cache/pkg/transport"
)

// maxPayloadBytes bounds request bodies forwarded upstream.
const maxPayloadBytes = 1 << 20

// server is the HTTP front of the proxy.
type server struct {
	client   *client.Client
	store    cache.Store
	tracker  *ratelimit.Tracker
	upstream string
	opts     client.Options
	logger   zerolog.Logger
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.HandleFunc("/esi/*", s.esiProxyHandler)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyResponse is the body of /ready.
type readyResponse struct {
	Status     string           `json:"status"`
	Swept      int64            `json:"swept"`
	Error      string           `json:"error,omitempty"`
	ErrorLimit *ratelimit.State `json:"error_limit,omitempty"`
}

// readyHandler checks the store with a sweep and reports the error limit.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready"}
	status := http.StatusOK

	swept, err := s.store.Sweep(r.Context(), time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Readiness check failed")
		resp.Status = "unavailable"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	resp.Swept = swept

	if s.tracker != nil && err == nil {
		state, err := s.tracker.GetState(r.Context())
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to read error limit state")
		} else {
			resp.ErrorLimit = state
		}
	}

	writeJSON(w, status, resp)
}

// esiProxyHandler forwards /esi/<path> to <upstream>/<path> through the
// request cache.
// Example: /esi/v4/markets/10000002/orders/ -> /v4/markets/10000002/orders/
func (s *server) esiProxyHandler(w http.ResponseWriter, r *http.Request) {
	method, err := transport.ParseMethod(r.Method)
	if err != nil {
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
		return
	}

	endpoint := "/" + chi.URLParam(r, "*")
	url := s.upstream + endpoint
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	var payload any
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		http.Error(w, "read request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) > maxPayloadBytes {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		payload, err = fingerprint.DecodePayload(body)
		if err != nil {
			http.Error(w, "request body must be JSON", http.StatusBadRequest)
			return
		}
	}

	var credential string
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		credential = strings.TrimSpace(token)
	}

	out := s.client.Execute(r.Context(), client.Descriptor{
		Endpoint:   endpoint,
		URL:        url,
		Method:     method,
		Payload:    payload,
		Credential: credential,
	}, s.opts)

	status := http.StatusOK
	if !out.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
