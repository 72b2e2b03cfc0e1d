// Package services contains the server-side flows: registration, login, OTP
// issuance and validation, password reset, admin user management and posts.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/users"
)

// PasswordHasher is satisfied by *cryptox.PasswordHasher.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(encoded, secret string) (bool, error)
}

// TokenMinter is satisfied by *auth.Codec.
type TokenMinter interface {
	Mint(claims auth.Claims, ttl time.Duration) (string, error)
}

const (
	PostsPageSize = 12
	AdminPageSize = 10
)

// Page is a 1-based page number; values below 1 mean the first page and
// values above MaxPage mean MaxPage.
type Page int

// MaxPage bounds the offset a request can ask the database to skip.
const MaxPage = 100_000

func (p Page) offset(size int) int {
	if p < 1 {
		return 0
	}
	return (int(min(p, MaxPage)) - 1) * size
}

// storageErr passes classified errors through and reports anything else as
// a transient storage failure.
func storageErr(err error) error {
	if common.KindOf(err) != common.KindUnknown {
		return err
	}
	return common.Transient("Storage unavailable", err)
}

// principal resolves the live user named by the token's email claim.
func principal(ctx context.Context, repo users.Repository, claims *auth.Claims) (*models.User, error) {
	if claims == nil || claims.Email == "" {
		return nil, common.Auth("Unauthorized", common.ErrorUnauthorized)
	}
	u, err := repo.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, storageErr(err)
	}
	if u.IsBanned {
		return nil, common.AccessDenied("Account is banned")
	}
	return u, nil
}

func requireAdmin(claims *auth.Claims) error {
	if claims == nil || claims.Role != models.RoleAdmin || !claims.IsVerified {
		return common.AccessDenied("Access not granted")
	}
	return nil
}
