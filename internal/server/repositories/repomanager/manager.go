package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
}

// MemoryRepositoryManager hands out one shared set of in-memory
// repositories and ignores the handle it is given.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
	posts *posts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	u := users.NewMemoryRepository()
	return &MemoryRepositoryManager{users: u, posts: posts.NewMemoryRepository(u)}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Posts(dbx.DBTX) posts.Repository {
	return m.posts
}
