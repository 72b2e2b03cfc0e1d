package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/validate"
)

type CreateUserInput struct {
	UserName   string      `json:"username" validate:"required,min=4,max=110"`
	Email      string      `json:"email" validate:"required,email,max=80"`
	Password   string      `json:"password" validate:"required,min=8,hasupper,hasdigit"`
	Role       models.Role `json:"role" validate:"required,oneof=USER ADMIN"`
	IsVerified bool        `json:"isVerified"`
}

// UpdateUserInput replaces username, email and role. Password is optional.
type UpdateUserInput struct {
	UserName string      `json:"username" validate:"required,min=4,max=110"`
	Email    string      `json:"email" validate:"required,email,max=80"`
	Password string      `json:"password" validate:"omitempty,min=8,hasupper,hasdigit"`
	Role     models.Role `json:"role" validate:"required,oneof=USER ADMIN"`
}

type BanInput struct {
	Banned bool `json:"banned"`
}

type IDsInput struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// AdminService manages users on behalf of a verified ADMIN. Every method
// re-checks the caller's claims.
type AdminService struct {
	db          dbx.Executor
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	logger      logging.Logger
}

func NewAdminService(db dbx.Executor, m repomanager.RepositoryManager, hasher PasswordHasher, logger logging.Logger) *AdminService {
	return &AdminService{db: db, repomanager: m, hasher: hasher, logger: logger}
}

func (s *AdminService) List(ctx context.Context, claims *auth.Claims, page Page) ([]*models.User, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Users(s.db.Conn()).List(ctx, false, AdminPageSize, page.offset(AdminPageSize))
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

func (s *AdminService) Trash(ctx context.Context, claims *auth.Claims, page Page) ([]*models.User, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Users(s.db.Conn()).List(ctx, true, AdminPageSize, page.offset(AdminPageSize))
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

func (s *AdminService) Create(ctx context.Context, claims *auth.Claims, in CreateUserInput) (*models.User, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return nil, err
	}
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, s.repomanager.Users(s.db.Conn()), in.UserName, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Email:        in.Email,
		UserName:     in.UserName,
		PasswordHash: hash,
		Role:         in.Role,
		IsVerified:   in.IsVerified,
	}
	err = s.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if _, err := repo.Create(ctx, u); err != nil {
			return err
		}
		return assignPublicID(ctx, repo, u)
	})
	if err != nil {
		return nil, conflictOnDuplicate(err)
	}

	s.logger.Info(ctx, "user created by admin", "user_id", u.ID, "role", u.Role, "admin", claims.Subject)
	return u, nil
}

func (s *AdminService) Update(ctx context.Context, claims *auth.Claims, id int64, in UpdateUserInput) (*models.User, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return nil, err
	}
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db.Conn())
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, repo, in.UserName, in.Email, id); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		if hash, err = s.hasher.Hash(in.Password); err != nil {
			return nil, err
		}
	}

	u.UserName, u.Email, u.Role = in.UserName, in.Email, in.Role
	err = s.db.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.Update(ctx, u); err != nil {
			return err
		}
		if hash != "" {
			return repo.UpdatePassword(ctx, u.ID, hash)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, conflictOnDuplicate(err)
	}
	return u, nil
}

func (s *AdminService) SetBanned(ctx context.Context, claims *auth.Claims, id int64, banned bool) error {
	if err := s.guardSelf(ctx, claims, id); err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db.Conn()).SetBanned(ctx, id, banned); err != nil {
		return s.notFound(err)
	}
	s.logger.Info(ctx, "user ban changed", "user_id", id, "banned", banned, "admin", claims.Subject)
	return nil
}

func (s *AdminService) Delete(ctx context.Context, claims *auth.Claims, id int64) error {
	if err := s.guardSelf(ctx, claims, id); err != nil {
		return err
	}
	if err := s.repomanager.Users(s.db.Conn()).SoftDelete(ctx, id); err != nil {
		return s.notFound(err)
	}
	return nil
}

func (s *AdminService) Recover(ctx context.Context, claims *auth.Claims, in IDsInput) (int64, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return 0, err
	}
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	n, err := s.repomanager.Users(s.db.Conn()).Recover(ctx, in.IDs)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// Purge permanently removes soft-deleted users and, by cascade, their posts.
func (s *AdminService) Purge(ctx context.Context, claims *auth.Claims, in IDsInput) (int64, error) {
	if err := s.authorize(ctx, claims); err != nil {
		return 0, err
	}
	if err := validate.Struct(in); err != nil {
		return 0, err
	}
	n, err := s.repomanager.Users(s.db.Conn()).Purge(ctx, in.IDs)
	if err != nil {
		return 0, storageErr(err)
	}
	s.logger.Warn(ctx, "users purged", "ids", in.IDs, "count", n, "admin", claims.Subject)
	return n, nil
}

func (s *AdminService) get(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repomanager.Users(s.db.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, s.notFound(err)
	}
	return u, nil
}

// authorize checks the admin claim and that the account behind it is still
// active.
func (s *AdminService) authorize(ctx context.Context, claims *auth.Claims) error {
	if err := requireAdmin(claims); err != nil {
		return err
	}
	_, err := principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
	return err
}

// guardSelf keeps an admin from banning or deleting their own account.
func (s *AdminService) guardSelf(ctx context.Context, claims *auth.Claims, id int64) error {
	if err := s.authorize(ctx, claims); err != nil {
		return err
	}
	target, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if target.Email == claims.Email {
		return common.AccessDenied("Cannot change your own account")
	}
	return nil
}

func (s *AdminService) notFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("User not found")
	}
	return storageErr(err)
}
