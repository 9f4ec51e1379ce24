package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/cadence/internal/domain/history"
)

// rawValue keeps the submitted value as text so the service can parse it
// strictly. It accepts a JSON string or a JSON number.
type rawValue string

func (v *rawValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = rawValue(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*v = rawValue(n.String())
	default:
		return errors.New("value must be a number or a string")
	}
	return nil
}

// observationRequest mirrors the OpenAPI schema for POST /api/observations.
type observationRequest struct {
	Time         string   `json:"time"`
	Value        rawValue `json:"value"`
	SubmissionID string   `json:"submission_id"`
}

// handleSubmit handles POST /api/observations.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_observation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeServiceError(w, r, op, WrapKind(op, history.ErrValidation, err))
		return
	}

	sess := sessionFrom(r.Context())
	res, err := s.deps.SubmitObservation(r.Context(), sess.ID, req.Time, string(req.Value), req.SubmissionID)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

type resetResponse struct {
	Status string `json:"status"`
}

// handleReset handles POST /api/reset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := s.deps.ResetSession(r.Context(), sessionFrom(r.Context()).ID); err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Status: "reset"})
}
