package api

import (
	"maps"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/pkg/metrics"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

func newMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

// handleHealth handles GET /healthz by exposing the Prometheus registry in
// the text format.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.metricsHandler.ServeHTTP(w, r)
}

// handleStats handles GET /stats. Service counters are merged with the
// server uptime and the current clock in the configured zone.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	out := map[string]interface{}{}
	if s.stats != nil {
		maps.Copy(out, s.stats.GetStats())
	}
	now := s.now()
	out["uptime"] = now.Sub(s.startedAt).Truncate(time.Second).String()
	if s.deps != nil {
		out["clock"] = clock.Format(s.deps.MinuteOfDay(now))
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, out)
}
