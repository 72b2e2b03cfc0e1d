package httpapi

import (
	"net/http"
)

type pageView struct {
	Path string `json:"path"`
}

// handlePage answers page routes once the gate let them through; rendering
// happens in the front end.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "OK", pageView{Path: r.URL.Path})
}

func (s *Server) handleLogoutPage(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
