package posts

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthors map[int64]*models.User

func (f fakeAuthors) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func newMemory() (*MemoryRepository, fakeAuthors) {
	authors := fakeAuthors{
		1: {ID: 1, UserName: "alice"},
		2: {ID: 2, UserName: "mallory", IsBanned: true},
	}
	r := NewMemoryRepository(authors)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r, authors
}

func create(t *testing.T, r *MemoryRepository, userID int64, slug string) *models.Post {
	t.Helper()
	p, err := r.Create(context.Background(), &models.Post{UserID: userID, Title: slug, Slug: slug, Content: "c"})
	require.NoError(t, err)
	return p
}

func TestMemory_PublicListing(t *testing.T) {
	ctx := context.Background()
	r, _ := newMemory()
	create(t, r, 1, "first")
	create(t, r, 2, "spam")
	create(t, r, 1, "second")

	got, err := r.List(ctx, ListFilter{Limit: 12})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Slug, "newest first")
	assert.Equal(t, "alice", got[0].Author)

	own, _ := r.List(ctx, ListFilter{UserID: 2, Limit: 12})
	assert.Len(t, own, 1, "authors still see their own posts")

	byName, _ := r.List(ctx, ListFilter{UserName: "alice", Limit: 1})
	assert.Len(t, byName, 1)

	negative, err := r.List(ctx, ListFilter{Limit: 12, Offset: -12})
	require.NoError(t, err)
	assert.Len(t, negative, 2)
}

func TestMemory_GetBySlugHidesBannedAuthors(t *testing.T) {
	ctx := context.Background()
	r, authors := newMemory()
	create(t, r, 1, "hello")
	create(t, r, 2, "spam")
	create(t, r, 3, "orphan")

	got, err := r.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Author)

	_, err = r.GetBySlug(ctx, "spam")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.GetBySlug(ctx, "orphan")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	authors[2].IsBanned = false
	got, err = r.GetBySlug(ctx, "spam")
	require.NoError(t, err)
	assert.Equal(t, "mallory", got.Author)
}

func TestMemory_SlugUnique(t *testing.T) {
	ctx := context.Background()
	r, _ := newMemory()
	p := create(t, r, 1, "dup")
	other := create(t, r, 1, "other")

	_, err := r.Create(ctx, &models.Post{UserID: 1, Slug: "dup"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	taken, _ := r.SlugTaken(ctx, "dup", p.ID)
	assert.False(t, taken)

	other.Slug = "dup"
	assert.ErrorIs(t, r.Update(ctx, other), common.ErrorAlreadyExists)
}

func TestMemory_TrashLifecycle(t *testing.T) {
	ctx := context.Background()
	r, _ := newMemory()
	a := create(t, r, 1, "a")
	b := create(t, r, 2, "b")

	require.NoError(t, r.SoftDelete(ctx, a.ID))
	require.NoError(t, r.SoftDelete(ctx, b.ID))
	_, err := r.GetBySlug(ctx, "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, _ := r.Recover(ctx, []int64{a.ID, b.ID}, 1)
	assert.Equal(t, int64(1), n, "owner scope")

	n, _ = r.Purge(ctx, []int64{a.ID, b.ID}, 0)
	assert.Equal(t, int64(1), n, "only trashed posts are purged")

	_, err = r.GetByID(ctx, a.ID)
	assert.NoError(t, err)
	_, err = r.GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
