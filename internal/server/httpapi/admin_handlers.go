package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.List(r.Context(), claimsFrom(r.Context()), page(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Users", newUserViews(list))
}

func (s *Server) handleUserTrash(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.Trash(r.Context(), claimsFrom(r.Context()), page(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Deleted users", newUserViews(list))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in services.CreateUserInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.admin.Create(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "User created", newUserView(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"), "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in services.UpdateUserInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.admin.Update(r.Context(), claimsFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User updated", newUserView(u))
}

func (s *Server) handleBanUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"), "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in services.BanInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.admin.SetBanned(r.Context(), claimsFrom(r.Context()), id, in.Banned); err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "User unbanned"
	if in.Banned {
		msg = "User banned"
	}
	ok(w, http.StatusOK, msg, nil)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "userId"), "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.admin.Delete(r.Context(), claimsFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User deleted", nil)
}

func (s *Server) handleRecoverUsers(w http.ResponseWriter, r *http.Request) {
	var in services.IDsInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.admin.Recover(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Users recovered", countView{Count: n})
}

func (s *Server) handlePurgeUsers(w http.ResponseWriter, r *http.Request) {
	var in services.IDsInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.admin.Purge(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Users permanently deleted", countView{Count: n})
}
