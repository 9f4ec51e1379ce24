// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/cadence/internal/adapters/identity"
	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/history"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/internal/domain/status"
	"github.com/okian/cadence/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Authenticate(ctx context.Context, sessionID string) (*service.Session, error)

	SubmitObservation(ctx context.Context, sessionID, clockTime, rawValue, submissionID string) (service.SubmitResult, error)
	ResetSession(ctx context.Context, sessionID string) error

	History(ctx context.Context, sessionID string) ([]model.Observation, error)
	Prediction(ctx context.Context, sessionID string) (prediction.Prediction, error)
	Status(ctx context.Context, sessionID string, nowMinute int) (service.StatusView, error)
	Snapshot(ctx context.Context, sessionID string, now time.Time) (service.View, error)
	MinuteOfDay(t time.Time) int
}

// Server wires HTTP routes for the dashboard API and pages.
type Server struct {
	deps   Dependencies
	cookie cookieConfig
	now    func() time.Time
	log    logger.Logger

	stats          StatsProvider
	metricsHandler http.Handler
	startedAt      time.Time
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCookieName sets the session cookie name.
func WithCookieName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.cookie.name = name
		}
	}
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.cookie.secure = secure
	}
}

// WithClock replaces the wall clock used when no ?now is given.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		cookie:         cookieConfig{name: defaultCookieName},
		now:            time.Now,
		log:            logger.Nop(),
		stats:          statsProvider,
		metricsHandler: newMetricsHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	routes := []struct {
		path, endpoint string
		h              http.HandlerFunc
	}{
		// Pages
		{"/", "root", s.handleRoot},
		{"/login", "login_page", s.handleLoginPage},
		{"/app", "app_page", s.handleAppPage},

		// Operational
		{"/healthz", "healthz", s.handleHealth},
		{"/stats", "stats", s.handleStats},

		// Auth
		{"/api/login", "login", s.handleLogin},
		{"/api/logout", "logout", s.handleLogout},

		// Session-scoped API
		{"/api/observations", "observations", s.requireSession(s.handleSubmit)},
		{"/api/reset", "reset", s.requireSession(s.handleReset)},
		{"/api/history", "history", s.requireSession(s.handleHistory)},
		{"/api/prediction", "prediction", s.requireSession(s.handlePrediction)},
		{"/api/status", "status", s.requireSession(s.handleStatus)},
		{"/api/dashboard", "dashboard", s.requireSession(s.handleDashboard)},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.path, s.instrument(rt.endpoint, rt.h))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Banner is the status line the dashboard shows for the error.
	Banner string `json:"banner,omitempty"`
}

const invalidTelemetry = "Invalid Telemetry Format"

func writeJSON(w http.ResponseWriter, httpStatus int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, httpStatus int, code string, err error) {
	msg := http.StatusText(httpStatus)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, httpStatus, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and identity errors onto HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *history.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_telemetry",
			Message: invalidTelemetry + ": " + ve.Field + " " + ve.Reason,
			Banner:  status.BannerError + invalidTelemetry,
		})
	case errors.Is(err, history.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "invalid_telemetry",
			Message: invalidTelemetry,
			Banner:  status.BannerError + invalidTelemetry,
		})
	case errors.Is(err, service.ErrSessionNotFound):
		s.clearCookie(w)
		writeError(w, http.StatusUnauthorized, "session_expired", NewKind(op, ErrUnauthorized))
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "access_denied", Message: identity.Denied(err)})
	case errors.Is(err, identity.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Code: "rate_limited", Message: identity.Denied(err)})
	case errors.Is(err, identity.ErrUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Code: "identity_unavailable", Message: identity.Denied(err)})
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		s.log.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}
