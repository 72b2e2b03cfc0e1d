package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

const userColumns = `id, public_id, email, username, password_hash, role, is_verified, otp, otp_exp, is_deleted, is_banned, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u        models.User
		publicID sql.NullString
		otp      sql.NullString
		otpExp   sql.NullTime
		role     string
	)
	err := row.Scan(&u.ID, &publicID, &u.Email, &u.UserName, &u.PasswordHash, &role, &u.IsVerified,
		&otp, &otpExp, &u.IsDeleted, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.PublicID = publicID.String
	u.Role = models.Role(role)
	u.OTP = otp.String
	if otpExp.Valid {
		u.OTPExp = otpExp.Time
	}
	return &u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, username, password_hash, role, is_verified)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.UserName, user.PasswordHash, string(user.Role), user.IsVerified).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` AND is_deleted = FALSE`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) taken(ctx context.Context, column, value string, exceptID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE ` + column + ` = $1 AND id <> $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, value, exceptID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	return r.taken(ctx, "email", email, exceptID)
}

func (r *PostgresRepository) UserNameTaken(ctx context.Context, userName string, exceptID int64) (bool, error) {
	return r.taken(ctx, "username", userName, exceptID)
}

// NextMonthOrdinal bumps the month's counter row. The row lock serializes
// concurrent registrations.
func (r *PostgresRepository) NextMonthOrdinal(ctx context.Context, at time.Time) (int, error) {
	query :=
		`INSERT INTO public_id_counters (month, last) VALUES ($1, 1)
		 ON CONFLICT (month) DO UPDATE SET last = public_id_counters.last + 1
		 RETURNING last`

	var n int
	if err := r.db.QueryRowContext(ctx, query, monthKey(at)).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// exec runs a single-row mutation and maps "no row touched" to ErrorNotFound.
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

func (r *PostgresRepository) SetPublicID(ctx context.Context, id int64, publicID string) error {
	return r.exec(ctx, `UPDATE users SET public_id = $2, updated_at = now() WHERE id = $1`, id, publicID)
}

func (r *PostgresRepository) SetOTP(ctx context.Context, id int64, code string, exp time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET otp = $2, otp_exp = $3, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, code, exp)
}

func (r *PostgresRepository) ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error) {
	query :=
		`UPDATE users SET otp = NULL, is_verified = TRUE, updated_at = now()
		 WHERE id = $1 AND otp = $2 AND otp_exp > $3 AND is_deleted = FALSE`

	res, err := r.db.ExecContext(ctx, query, id, code, now)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, otp_exp = NULL, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, hash)
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	return r.exec(ctx,
		`UPDATE users SET username = $2, email = $3, role = $4, is_verified = $5, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`,
		user.ID, user.UserName, user.Email, string(user.Role), user.IsVerified)
}

func (r *PostgresRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	return r.exec(ctx,
		`UPDATE users SET is_banned = $2, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, banned)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE users SET is_deleted = TRUE, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id)
}

func (r *PostgresRepository) List(ctx context.Context, deleted bool, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE is_deleted = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, deleted, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) bulk(ctx context.Context, query string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(query, dbx.Placeholders(1, len(ids))), dbx.Int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Recover(ctx context.Context, ids []int64) (int64, error) {
	return r.bulk(ctx, `UPDATE users SET is_deleted = FALSE, updated_at = now() WHERE is_deleted = TRUE AND id IN (%s)`, ids)
}

func (r *PostgresRepository) Purge(ctx context.Context, ids []int64) (int64, error) {
	return r.bulk(ctx, `DELETE FROM users WHERE is_deleted = TRUE AND id IN (%s)`, ids)
}
