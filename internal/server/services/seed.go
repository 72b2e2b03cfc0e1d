package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/validate"
)

type SeedInput struct {
	UserName string `json:"username" validate:"required,min=4,max=110"`
	Email    string `json:"email" validate:"required,email,max=80"`
	Password string `json:"password" validate:"required,min=8,hasupper,hasdigit"`
}

// SeedAdmin makes sure a verified ADMIN with the given email exists. An
// existing account is promoted and gets the new password; otherwise one is
// created. created reports which happened.
func SeedAdmin(ctx context.Context, db dbx.Executor, m repomanager.RepositoryManager, hasher PasswordHasher, in SeedInput) (u *models.User, created bool, err error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, false, err
	}

	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return nil, false, err
	}

	err = db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.Users(tx)

		existing, err := repo.GetByEmail(ctx, in.Email)
		switch {
		case err == nil:
			existing.Role = models.RoleAdmin
			existing.IsVerified = true
			if err := repo.Update(ctx, existing); err != nil {
				return err
			}
			if err := repo.UpdatePassword(ctx, existing.ID, hash); err != nil {
				return err
			}
			u = existing
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		if err := checkUnique(ctx, repo, in.UserName, in.Email, 0); err != nil {
			return err
		}
		u = &models.User{
			Email:        in.Email,
			UserName:     in.UserName,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsVerified:   true,
		}
		if _, err := repo.Create(ctx, u); err != nil {
			return err
		}
		created = true
		return assignPublicID(ctx, repo, u)
	})
	if err != nil {
		if common.KindOf(err) == common.KindConflict {
			return nil, false, err
		}
		return nil, false, storageErr(err)
	}
	return u, created, nil
}
