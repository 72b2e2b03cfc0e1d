package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

const selectPost = `SELECT p.id, p.user_id, u.username, p.title, p.slug, p.content, p.is_deleted, p.created_at, p.updated_at
		 FROM posts p JOIN users u ON u.id = p.user_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.UserID, &p.Author, &p.Title, &p.Slug, &p.Content, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (user_id, title, slug, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Title, post.Slug, post.Content).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, selectPost+` WHERE `+where+` AND p.is_deleted = FALSE`, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return r.getOne(ctx, `p.id = $1`, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return r.getOne(ctx, `p.slug = $1 AND u.is_banned = FALSE AND u.is_deleted = FALSE`, slug)
}

func (r *PostgresRepository) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`, slug, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]*models.Post, error) {
	conds := []string{`p.is_deleted = $1`}
	args := []any{f.Deleted}

	if f.UserID != 0 {
		args = append(args, f.UserID)
		conds = append(conds, `p.user_id = $`+strconv.Itoa(len(args)))
	}
	if f.UserName != "" {
		args = append(args, f.UserName)
		conds = append(conds, `u.username = $`+strconv.Itoa(len(args)))
	}
	if !f.Deleted && f.UserID == 0 {
		conds = append(conds, `u.is_banned = FALSE`, `u.is_deleted = FALSE`)
	}

	args = append(args, f.Limit, f.Offset)
	query := selectPost + ` WHERE ` + strings.Join(conds, ` AND `) +
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, post *models.Post) error {
	return r.exec(ctx,
		`UPDATE posts SET title = $2, slug = $3, content = $4, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`,
		post.ID, post.Title, post.Slug, post.Content)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE posts SET is_deleted = TRUE, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id)
}

// bulk runs a statement over soft-deleted posts; query takes the id
// placeholder list and an optional owner condition.
func (r *PostgresRepository) bulk(ctx context.Context, query string, ids []int64, ownerID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := dbx.Int64Args(ids)
	owner := ""
	if ownerID != 0 {
		args = append(args, ownerID)
		owner = ` AND user_id = $` + strconv.Itoa(len(args))
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(query, dbx.Placeholders(1, len(ids)), owner), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Recover(ctx context.Context, ids []int64, ownerID int64) (int64, error) {
	return r.bulk(ctx, `UPDATE posts SET is_deleted = FALSE, updated_at = now() WHERE is_deleted = TRUE AND id IN (%s)%s`, ids, ownerID)
}

func (r *PostgresRepository) Purge(ctx context.Context, ids []int64, ownerID int64) (int64, error) {
	return r.bulk(ctx, `DELETE FROM posts WHERE is_deleted = TRUE AND id IN (%s)%s`, ids, ownerID)
}
