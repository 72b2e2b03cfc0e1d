package httpapi

import (
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
)

type userView struct {
	ID         int64       `json:"id"`
	PublicID   string      `json:"publicId"`
	Email      string      `json:"email"`
	UserName   string      `json:"username"`
	Role       models.Role `json:"role"`
	IsVerified bool        `json:"isVerified"`
	IsBanned   bool        `json:"isBanned"`
	IsDeleted  bool        `json:"isDeleted"`
	CreatedAt  time.Time   `json:"createdAt"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:         u.ID,
		PublicID:   u.PublicID,
		Email:      u.Email,
		UserName:   u.UserName,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		IsBanned:   u.IsBanned,
		IsDeleted:  u.IsDeleted,
		CreatedAt:  u.CreatedAt,
	}
}

func newUserViews(list []*models.User) []userView {
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, newUserView(u))
	}
	return out
}

type postView struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newPostView(p *models.Post) postView {
	return postView{
		ID:        p.ID,
		Title:     p.Title,
		Slug:      p.Slug,
		Content:   p.Content,
		Author:    p.Author,
		IsDeleted: p.IsDeleted,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func newPostViews(list []*models.Post) []postView {
	out := make([]postView, 0, len(list))
	for _, p := range list {
		out = append(out, newPostView(p))
	}
	return out
}

type sessionView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func newSessionView(s *services.Session) sessionView {
	return sessionView{Token: s.Token, User: newUserView(s.User)}
}

type countView struct {
	Count int64 `json:"count"`
}
