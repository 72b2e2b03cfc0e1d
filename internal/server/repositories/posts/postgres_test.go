package posts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var columns = []string{"id", "user_id", "username", "title", "slug", "content", "is_deleted", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+posts\s*\(user_id,\s*title,\s*slug,\s*content\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at,\s*updated_at$`
	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(int64(2), "A title long enough", "a-title-long-enough", "body").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

	got, err := repo.Create(context.Background(), &models.Post{UserID: 2, Title: "A title long enough", Slug: "a-title-long-enough", Content: "body"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 5 {
		t.Fatalf("unexpected post: %+v", got)
	}
}

func TestCreate_DuplicateSlug(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+posts`).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.Post{UserID: 1})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+posts\s+p\s+JOIN\s+users\s+u\s+ON\s+u\.id\s*=\s*p\.user_id\s+WHERE\s+p\.slug\s*=\s*\$1\s+AND\s+u\.is_banned\s*=\s*FALSE\s+AND\s+u\.is_deleted\s*=\s*FALSE\s+AND\s+p\.is_deleted\s*=\s*FALSE$`).
		WithArgs("hello").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), int64(2), "alice", "Hello", "hello", "c", false, now, now))

	got, err := repo.GetBySlug(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GetBySlug error: %v", err)
	}
	if got.Author != "alice" || got.UserID != 2 {
		t.Fatalf("unexpected post: %+v", got)
	}
}

func TestGetBySlug_BannedAuthorNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)WHERE\s+p\.slug\s*=\s*\$1\s+AND\s+u\.is_banned\s*=\s*FALSE`).
		WithArgs("spam").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "spam")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+p\.id\s*=\s*\$1`).WithArgs(int64(3)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 3)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestList_PublicExcludesBannedAuthors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)WHERE\s+p\.is_deleted\s*=\s*\$1\s+AND\s+u\.is_banned\s*=\s*FALSE\s+AND\s+u\.is_deleted\s*=\s*FALSE\s+ORDER\s+BY\s+p\.created_at\s+DESC,\s*p\.id\s+DESC\s+LIMIT\s+\$2\s+OFFSET\s+\$3$`
	mock.ExpectQuery(q).
		WithArgs(false, 12, 24).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background(), ListFilter{Limit: 12, Offset: 24})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestList_OwnerTrash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)WHERE\s+p\.is_deleted\s*=\s*\$1\s+AND\s+p\.user_id\s*=\s*\$2\s+ORDER\s+BY.*LIMIT\s+\$3\s+OFFSET\s+\$4$`
	mock.ExpectQuery(q).
		WithArgs(true, int64(7), 10, 0).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), int64(7), "bob", "T", "t", "c", true, now, now))

	got, err := repo.List(context.Background(), ListFilter{UserID: 7, Deleted: true, Limit: 10})
	if err != nil || len(got) != 1 || !got[0].IsDeleted {
		t.Fatalf("List = %+v, %v", got, err)
	}
}

func TestList_ByUserName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)AND\s+u\.username\s*=\s*\$2\s+AND\s+u\.is_banned`).
		WithArgs(false, "alice", 12, 0).
		WillReturnError(errors.New("gone"))

	_, err := repo.List(context.Background(), ListFilter{UserName: "alice", Limit: 12})
	if err == nil || !regexp.MustCompile(`db error: .*gone`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSoftDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+posts\s+SET\s+is_deleted\s*=\s*TRUE`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SoftDelete(context.Background(), 4); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestRecover_ScopedToOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+posts\s+SET\s+is_deleted\s*=\s*FALSE.*id\s+IN\s+\(\$1,\s*\$2\)\s+AND\s+user_id\s*=\s*\$3$`).
		WithArgs(int64(1), int64(2), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Recover(context.Background(), []int64{1, 2}, 9)
	if err != nil || n != 1 {
		t.Fatalf("Recover = %d, %v", n, err)
	}
}

func TestPurge_AnyOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+posts\s+WHERE\s+is_deleted\s*=\s*TRUE\s+AND\s+id\s+IN\s+\(\$1\)$`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Purge(context.Background(), []int64{3}, 0)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v", n, err)
	}
}
