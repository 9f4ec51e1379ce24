package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/pkg/logger"
)

const defaultCookieName = "cadence_session"

type cookieConfig struct {
	name   string
	secure bool
}

type sessionKey struct{}

// sessionFrom returns the session attached by requireSession.
func sessionFrom(ctx context.Context) *service.Session {
	sess, _ := ctx.Value(sessionKey{}).(*service.Session)
	return sess
}

func (s *Server) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentSession resolves the cookie to a live session, or nil.
func (s *Server) currentSession(r *http.Request) *service.Session {
	c, err := r.Cookie(s.cookie.name)
	if err != nil || c.Value == "" {
		return nil
	}
	sess, err := s.deps.Authenticate(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return sess
}

// requireSession rejects requests without a live session cookie.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.currentSession(r)
		if sess == nil {
			s.clearCookie(w)
			writeError(w, http.StatusUnauthorized, "session_expired", NewKind("api.require_session", ErrUnauthorized))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = logger.ContextWithFields(ctx, logger.String("session", sess.ID))
		next(w, r.WithContext(ctx))
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Email    string `json:"email"`
	Redirect string `json:"redirect"`
}

// handleLogin handles POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sess, err := s.deps.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	s.setCookie(w, sess.ID)
	writeJSON(w, http.StatusOK, loginResponse{Email: sess.Email, Redirect: pathApp})
}

// handleLogout handles POST /api/logout. It succeeds even when the session
// already expired so the client always ends up signed out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	const op = "api.logout"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if c, err := r.Cookie(s.cookie.name); err == nil && c.Value != "" {
		if err := s.deps.Logout(r.Context(), c.Value); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
			s.writeServiceError(w, r, op, err)
			return
		}
	}
	s.clearCookie(w)
	writeJSON(w, http.StatusOK, loginResponse{Redirect: pathLogin})
}
