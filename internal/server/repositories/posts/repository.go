// Package posts persists blog posts.
package posts

import (
	"context"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

// ListFilter narrows List. A zero UserID and empty UserName select every
// author. Public listings (Deleted false, no UserID) skip banned or deleted
// authors.
type ListFilter struct {
	UserName string
	UserID   int64
	Deleted  bool
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	// GetBySlug is the public lookup: posts of banned or deleted authors are
	// not found.
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*models.Post, error)
	// Update writes title, slug and content.
	Update(ctx context.Context, post *models.Post) error
	SoftDelete(ctx context.Context, id int64) error
	// Recover and Purge act on soft-deleted posts among ids. ownerID limits
	// them to one author; 0 means any author.
	Recover(ctx context.Context, ids []int64, ownerID int64) (int64, error)
	Purge(ctx context.Context, ids []int64, ownerID int64) (int64, error)
}
