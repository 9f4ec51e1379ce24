package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/cadence/pkg/logger"
	"github.com/okian/cadence/pkg/metrics"
)

// errorClass describes how an error status is reported.
type errorClass struct {
	kind      string
	severity  string
	component string
}

var errorClasses = map[int]errorClass{
	http.StatusBadRequest:          {kind: "bad_request", severity: "low", component: "http"},
	http.StatusUnauthorized:        {kind: "unauthorized", severity: "low", component: "auth"},
	http.StatusNotFound:            {kind: "not_found", severity: "low", component: "http"},
	http.StatusTooManyRequests:     {kind: "rate_limit", severity: "medium", component: "auth"},
	http.StatusBadGateway:          {kind: "upstream_error", severity: "high", component: "identity"},
	http.StatusServiceUnavailable:  {kind: "unavailable", severity: "high", component: "service"},
	http.StatusInternalServerError: {kind: "server_error", severity: "high", component: "http"},
}

func classify(code int) errorClass {
	if c, ok := errorClasses[code]; ok {
		return c
	}
	if code >= http.StatusInternalServerError {
		return errorClass{kind: "server_error", severity: "high", component: "http"}
	}
	return errorClass{kind: "client_error", severity: "medium", component: "http"}
}

// instrument records request count, latency and error metrics for endpoint.
// Server-side failures are logged as well.
func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rec.code)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, ms)

		if rec.code < http.StatusBadRequest {
			return
		}
		c := classify(rec.code)
		metrics.RecordErrorByComponent(c.component, c.kind)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, c.kind)
		metrics.RecordErrorByType(c.kind, c.severity)
		metrics.RecordErrorLatency("http", c.kind, ms)

		if rec.code >= http.StatusInternalServerError {
			s.log.Warn(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.Int("status", rec.code),
				logger.Float64("latencyMs", ms))
		}
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.code = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
