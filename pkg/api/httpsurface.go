/*
httpsurface.go implements the dealer's HttpSurface (spec.md §4.7): a
plain JSON HTTP server, not RPC, fronting the scheduler for workers and
the public catalogue for anyone. The ServeMux-plus-http.Server shape and
the /metrics registration follow the usual net/http pattern; the
request/response semantics of each endpoint are grounded on the
original python dealer's dealer.py, which this file reimplements as four
mutating JSON endpoints plus the public GET /servers listing.

Every response passes through wrap, which applies the uniform
Cache-Control: no-store header, JSON-encodes the body with indentation,
and records the endpoint's request-count and latency metrics. The four
mutating endpoints additionally require the request's socket-visible
address to be loopback; GET /servers does not.
*/
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cuemby/netwatch/pkg/catalogue"
	"github.com/cuemby/netwatch/pkg/log"
	"github.com/cuemby/netwatch/pkg/metrics"
	"github.com/cuemby/netwatch/pkg/scheduler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPSurface is the dealer's worker-and-public-facing HTTP API.
type HTTPSurface struct {
	scheduler *scheduler.Scheduler
	catalogue *catalogue.Builder
	logger    zerolog.Logger
	mux       *http.ServeMux
}

// NewHTTPSurface builds the HttpSurface over sch (the sole writer of
// the dealer's state) and cat (the source of the cached /servers
// listing).
func NewHTTPSurface(sch *scheduler.Scheduler, cat *catalogue.Builder) *HTTPSurface {
	s := &HTTPSurface{
		scheduler: sch,
		catalogue: cat,
		logger:    log.WithComponent("api"),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/work", s.wrap("/work", true, s.handleWork))
	s.mux.HandleFunc("/complete", s.wrap("/complete", true, s.handleComplete))
	s.mux.HandleFunc("/insert", s.wrap("/insert", true, s.handleInsert))
	s.mux.HandleFunc("/alias", s.wrap("/alias", true, s.handleAlias))
	s.mux.HandleFunc("/servers", s.wrap("/servers", false, s.handleServers))
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Handler returns the surface's http.Handler, for embedding or testing.
func (s *HTTPSurface) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP surface until ctx is cancelled, then shuts the
// listener down gracefully.
func (s *HTTPSurface) Start(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// wrap applies the uniform response envelope (spec.md §5, no-cache
// middleware) and, for mutating endpoints, the loopback gate (spec.md
// §4.7). handler returns the status code and body to send; wrap never
// lets a handler write to the ResponseWriter directly so every response
// is guaranteed the same headers and pretty-printing.
func (s *HTTPSurface) wrap(endpoint string, mutating bool, handler func(r *http.Request) (int, interface{})) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		defer timer.ObserveDurationVec(metrics.APIRequestDuration, endpoint)

		requestID := uuid.NewString()
		reqLogger := log.WithRequestID(requestID)

		if mutating && !isLoopback(r) {
			metrics.APIRejectedOriginTotal.WithLabelValues(endpoint).Inc()
			reqLogger.Warn().Str("endpoint", endpoint).Str("remote_addr", r.RemoteAddr).Msg("rejecting mutating request from non-loopback origin")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: ErrForbiddenOrigin.Error()})
			metrics.APIRequestsTotal.WithLabelValues(endpoint, "403").Inc()
			return
		}

		status, body := handler(r)
		writeJSON(w, status, body)
		metrics.APIRequestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
		if status >= 400 {
			reqLogger.Warn().Str("endpoint", endpoint).Int("status", status).Msg("request failed")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

func statusClass(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// isLoopback reports whether r's socket-visible address is 127.0.0.1 or
// ::1. Deliberately reads only RemoteAddr, never a forwarded-for style
// header, since those are client-supplied and spec.md §4.7 gates on the
// socket address.
func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// decodeStrict rejects any field not present in dst's json tags (spec.md
// §9, "duck-typed rows... validated against a schema with exactly the
// recognized fields; unknown fields are rejected").
func decodeStrict(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
