package services

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/validate"
	"github.com/dmitrijs2005/blogkeeper/internal/slugx"
	"github.com/microcosm-cc/bluemonday"
)

type PostInput struct {
	Title   string `json:"title" validate:"required,min=10,max=120"`
	Content string `json:"content" validate:"required,min=30"`
}

// PostUpdateInput leaves empty fields unchanged.
type PostUpdateInput struct {
	Title   string `json:"title" validate:"omitempty,min=10,max=120"`
	Content string `json:"content" validate:"omitempty,min=30"`
}

type PostService struct {
	db          dbx.Executor
	repomanager repomanager.RepositoryManager
	logger      logging.Logger

	titlePolicy   *bluemonday.Policy
	contentPolicy *bluemonday.Policy
}

func NewPostService(db dbx.Executor, m repomanager.RepositoryManager, logger logging.Logger) *PostService {
	return &PostService{
		db:            db,
		repomanager:   m,
		logger:        logger,
		titlePolicy:   bluemonday.StrictPolicy(),
		contentPolicy: bluemonday.UGCPolicy(),
	}
}

// sanitizeTitle strips all markup; bluemonday escapes what it keeps, so the
// result is unescaped back to plain text.
func (s *PostService) sanitizeTitle(title string) string {
	return strings.TrimSpace(html.UnescapeString(s.titlePolicy.Sanitize(title)))
}

func (s *PostService) List(ctx context.Context, page Page) ([]*models.Post, error) {
	return s.list(ctx, posts.ListFilter{Limit: PostsPageSize, Offset: page.offset(PostsPageSize)})
}

func (s *PostService) ByUser(ctx context.Context, userName string, page Page) ([]*models.Post, error) {
	return s.list(ctx, posts.ListFilter{UserName: userName, Limit: PostsPageSize, Offset: page.offset(PostsPageSize)})
}

func (s *PostService) BySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := s.repomanager.Posts(s.db.Conn()).GetBySlug(ctx, slug)
	if err != nil {
		return nil, postNotFound(err)
	}
	return p, nil
}

// Trash lists soft-deleted posts: all of them for admins, the caller's own
// otherwise.
func (s *PostService) Trash(ctx context.Context, claims *auth.Claims, page Page) ([]*models.Post, error) {
	ownerID, err := s.scope(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, posts.ListFilter{UserID: ownerID, Deleted: true, Limit: AdminPageSize, Offset: page.offset(AdminPageSize)})
}

func (s *PostService) list(ctx context.Context, f posts.ListFilter) ([]*models.Post, error) {
	list, err := s.repomanager.Posts(s.db.Conn()).List(ctx, f)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

func (s *PostService) Create(ctx context.Context, claims *auth.Claims, in PostInput) (*models.Post, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	author, err := principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
	if err != nil {
		return nil, err
	}

	p := &models.Post{
		UserID:  author.ID,
		Author:  author.UserName,
		Title:   s.sanitizeTitle(in.Title),
		Content: s.contentPolicy.Sanitize(in.Content),
	}
	repo := s.repomanager.Posts(s.db.Conn())
	if p.Slug, err = s.slug(ctx, repo, p.Title, 0); err != nil {
		return nil, err
	}

	if _, err := repo.Create(ctx, p); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, titleTaken()
		}
		return nil, storageErr(err)
	}
	return p, nil
}

// Update edits a post owned by the caller; admins may edit any post.
func (s *PostService) Update(ctx context.Context, claims *auth.Claims, id int64, in PostUpdateInput) (*models.Post, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Posts(s.db.Conn())
	if in.Title != "" {
		p.Title = s.sanitizeTitle(in.Title)
		if p.Slug, err = s.slug(ctx, repo, p.Title, p.ID); err != nil {
			return nil, err
		}
	}
	if in.Content != "" {
		p.Content = s.contentPolicy.Sanitize(in.Content)
	}

	if err := repo.Update(ctx, p); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, titleTaken()
		}
		return nil, postNotFound(err)
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, claims *auth.Claims, id int64) error {
	p, err := s.owned(ctx, claims, id)
	if err != nil {
		return err
	}
	if err := s.repomanager.Posts(s.db.Conn()).SoftDelete(ctx, p.ID); err != nil {
		return postNotFound(err)
	}
	return nil
}

func (s *PostService) Recover(ctx context.Context, claims *auth.Claims, in IDsInput) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	ownerID, err := s.scope(ctx, claims)
	if err != nil {
		return 0, err
	}
	n, err := s.repomanager.Posts(s.db.Conn()).Recover(ctx, in.IDs, ownerID)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *PostService) Purge(ctx context.Context, claims *auth.Claims, in IDsInput) (int64, error) {
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	ownerID, err := s.scope(ctx, claims)
	if err != nil {
		return 0, err
	}
	n, err := s.repomanager.Posts(s.db.Conn()).Purge(ctx, in.IDs, ownerID)
	if err != nil {
		return 0, storageErr(err)
	}
	s.logger.Info(ctx, "posts purged", "ids", in.IDs, "count", n, "by", claims.Subject)
	return n, nil
}

func (s *PostService) slug(ctx context.Context, repo posts.Repository, title string, exceptID int64) (string, error) {
	slug := slugx.Make(title)
	if slug == "" {
		return "", common.Validation("Validation failed", common.FieldError{Path: "title", Message: "Title must contain letters or digits"})
	}
	taken, err := repo.SlugTaken(ctx, slug, exceptID)
	if err != nil {
		return "", storageErr(err)
	}
	if taken {
		return "", titleTaken()
	}
	return slug, nil
}

// scope is the owner filter for trash operations: 0 for admins, the
// caller's id otherwise.
func (s *PostService) scope(ctx context.Context, claims *auth.Claims) (int64, error) {
	u, err := principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
	if err != nil {
		return 0, err
	}
	if requireAdmin(claims) == nil {
		return 0, nil
	}
	return u.ID, nil
}

func (s *PostService) owned(ctx context.Context, claims *auth.Claims, id int64) (*models.Post, error) {
	p, err := s.repomanager.Posts(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}
	ownerID, err := s.scope(ctx, claims)
	if err != nil {
		return nil, err
	}
	if ownerID != 0 && p.UserID != ownerID {
		return nil, common.AccessDenied("Access not granted")
	}
	return p, nil
}

func titleTaken() error {
	return common.Conflict("Title already exists", common.FieldError{Path: "title", Message: "Title already exists"})
}

func postNotFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("Post not found")
	}
	return storageErr(err)
}
