package api

import (
	"embed"
	"io/fs"
	"net/http"
)

const (
	pathRoot  = "/"
	pathLogin = "/login"
	pathApp   = "/app"
)

//go:embed static/*.html
var staticFS embed.FS

// pagesFS exposes a sub-filesystem rooted at static/.
var pagesFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()

func servePage(w http.ResponseWriter, r *http.Request, name string) {
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, pagesFS, name)
}

// handleRoot handles GET / by redirecting to the dashboard or the login page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != pathRoot || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.currentSession(r) != nil {
		http.Redirect(w, r, pathApp, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, pathLogin, http.StatusSeeOther)
}

// handleLoginPage handles GET /login.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.currentSession(r) != nil {
		http.Redirect(w, r, pathApp, http.StatusSeeOther)
		return
	}
	servePage(w, r, "login.html")
}

// handleAppPage handles GET /app.
func (s *Server) handleAppPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.currentSession(r) == nil {
		http.Redirect(w, r, pathLogin, http.StatusSeeOther)
		return
	}
	servePage(w, r, "app.html")
}
