package api

import (
	"net/http"

	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
)

type historyResponse struct {
	Count   int                 `json:"count"`
	Entries []model.Observation `json:"entries"`
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries, err := s.deps.History(r.Context(), sessionFrom(r.Context()).ID)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	if entries == nil {
		entries = []model.Observation{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Count: len(entries), Entries: entries})
}

// handlePrediction handles GET /api/prediction.
func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_prediction"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	p, err := s.deps.Prediction(r.Context(), sessionFrom(r.Context()).ID)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleStatus handles GET /api/status?now=HH:MM. Without now the server
// clock in the configured zone is used.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	nowMinute := s.deps.MinuteOfDay(s.now())
	if q := r.URL.Query().Get("now"); q != "" {
		m, err := clock.Parse(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		nowMinute = m
	}

	v, err := s.deps.Status(r.Context(), sessionFrom(r.Context()).ID, nowMinute)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleDashboard handles GET /api/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dashboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, err := s.deps.Snapshot(r.Context(), sessionFrom(r.Context()).ID, s.now())
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
