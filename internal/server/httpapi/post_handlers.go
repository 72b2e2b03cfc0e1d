package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.posts.List(r.Context(), page(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Posts", newPostViews(list))
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.posts.ByUser(r.Context(), chi.URLParam(r, "username"), page(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Posts", newPostViews(list))
}

func (s *Server) handlePostBySlug(w http.ResponseWriter, r *http.Request) {
	p, err := s.posts.BySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Post", newPostView(p))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in services.PostInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.posts.Create(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "Post created", newPostView(p))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in services.PostUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.posts.Update(r.Context(), claimsFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Post updated", newPostView(p))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"), "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.posts.Delete(r.Context(), claimsFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Post deleted", nil)
}

func (s *Server) handlePostTrash(w http.ResponseWriter, r *http.Request) {
	list, err := s.posts.Trash(r.Context(), claimsFrom(r.Context()), page(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Deleted posts", newPostViews(list))
}

func (s *Server) handleRecoverPosts(w http.ResponseWriter, r *http.Request) {
	var in services.IDsInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.posts.Recover(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Posts recovered", countView{Count: n})
}

func (s *Server) handlePurgePosts(w http.ResponseWriter, r *http.Request) {
	var in services.IDsInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.posts.Purge(r.Context(), claimsFrom(r.Context()), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Posts permanently deleted", countView{Count: n})
}
