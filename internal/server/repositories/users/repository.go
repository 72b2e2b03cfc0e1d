// Package users persists principals.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

// Repository stores users. Lookups by id or email skip soft-deleted rows.
// Mutations of a missing row return common.ErrorNotFound; a duplicate email
// or username returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// EmailTaken and UserNameTaken include soft-deleted users; exceptID
	// excludes one row (0 excludes nothing).
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	UserNameTaken(ctx context.Context, userName string, exceptID int64) (bool, error)

	// NextMonthOrdinal hands out the next 1-based ordinal for the calendar
	// month (UTC) of at. Ordinals are never reused, even after a purge.
	NextMonthOrdinal(ctx context.Context, at time.Time) (int, error)
	SetPublicID(ctx context.Context, id int64, publicID string) error

	SetOTP(ctx context.Context, id int64, code string, exp time.Time) error
	// ConsumeOTP clears the code and marks the user verified only if code is
	// still the stored one and has not expired at now. It reports whether it
	// did so.
	ConsumeOTP(ctx context.Context, id int64, code string, now time.Time) (bool, error)
	// UpdatePassword replaces the hash and closes the OTP window.
	UpdatePassword(ctx context.Context, id int64, hash string) error

	// Update writes username, email, role and verification flag.
	Update(ctx context.Context, user *models.User) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, deleted bool, limit, offset int) ([]*models.User, error)
	Recover(ctx context.Context, ids []int64) (int64, error)
	// Purge removes soft-deleted users for good.
	Purge(ctx context.Context, ids []int64) (int64, error)
}

func monthKey(at time.Time) string {
	return at.UTC().Format("2006-01")
}
