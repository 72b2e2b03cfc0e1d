package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

// AuthorLookup resolves post authors for the in-memory repository, standing
// in for the users join.
type AuthorLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*models.Post
	authors AuthorLookup
	now     func() time.Time
}

func NewMemoryRepository(authors AuthorLookup) *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*models.Post), authors: authors, now: time.Now}
}

func (r *MemoryRepository) withAuthor(ctx context.Context, p *models.Post) (*models.Post, *models.User) {
	c := *p
	u, err := r.authors.GetByID(ctx, p.UserID)
	if err != nil {
		return &c, nil
	}
	c.Author = u.UserName
	return &c, u
}

func (r *MemoryRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		if p.Slug == post.Slug {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	now := r.now().UTC()
	post.ID = r.nextID
	post.CreatedAt = now
	post.UpdatedAt = now
	c := *post
	r.byID[post.ID] = &c
	return post, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || p.IsDeleted {
		return nil, common.ErrorNotFound
	}
	c, _ := r.withAuthor(ctx, p)
	return c, nil
}

func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		if p.Slug != slug || p.IsDeleted {
			continue
		}
		c, author := r.withAuthor(ctx, p)
		if author == nil || author.IsBanned {
			return nil, common.ErrorNotFound
		}
		return c, nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) SlugTaken(_ context.Context, slug string, exceptID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.byID {
		if p.Slug == slug && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	public := !f.Deleted && f.UserID == 0
	var all []*models.Post
	for _, p := range r.byID {
		if p.IsDeleted != f.Deleted || (f.UserID != 0 && p.UserID != f.UserID) {
			continue
		}
		c, author := r.withAuthor(ctx, p)
		if f.UserName != "" && c.Author != f.UserName {
			continue
		}
		if public && (author == nil || author.IsBanned) {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset >= len(all) {
		return nil, nil
	}
	all = all[f.Offset:]
	if f.Limit > 0 && f.Limit < len(all) {
		all = all[:f.Limit]
	}
	return all, nil
}

func (r *MemoryRepository) Update(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[post.ID]
	if !ok || p.IsDeleted {
		return common.ErrorNotFound
	}
	for _, other := range r.byID {
		if other.ID != post.ID && other.Slug == post.Slug {
			return common.ErrorAlreadyExists
		}
	}
	p.Title = post.Title
	p.Slug = post.Slug
	p.Content = post.Content
	p.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok || p.IsDeleted {
		return common.ErrorNotFound
	}
	p.IsDeleted = true
	p.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepository) trashed(ids []int64, ownerID int64, fn func(p *models.Post)) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range ids {
		p, ok := r.byID[id]
		if !ok || !p.IsDeleted || (ownerID != 0 && p.UserID != ownerID) {
			continue
		}
		fn(p)
		n++
	}
	return n
}

func (r *MemoryRepository) Recover(_ context.Context, ids []int64, ownerID int64) (int64, error) {
	return r.trashed(ids, ownerID, func(p *models.Post) { p.IsDeleted = false }), nil
}

func (r *MemoryRepository) Purge(_ context.Context, ids []int64, ownerID int64) (int64, error) {
	return r.trashed(ids, ownerID, func(p *models.Post) { delete(r.byID, p.ID) }), nil
}
