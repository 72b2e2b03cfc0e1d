package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/blogkeeper/internal/server/validate"
)

type RegisterInput struct {
	UserName string `json:"username" validate:"required,min=4,max=110"`
	Email    string `json:"email" validate:"required,email,max=80"`
	Password string `json:"password" validate:"required,min=8,hasupper,hasdigit"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=80"`
	Password string `json:"password" validate:"required"`
}

type OTPInput struct {
	OTP string `json:"otp" validate:"required,len=6,otpcode"`
}

type PasswordResetInput struct {
	Password         string `json:"password" validate:"required,min=8,hasupper,hasdigit"`
	NewPassword      string `json:"newPassword" validate:"required,min=8,hasupper,hasdigit"`
	NewRetryPassword string `json:"newRetryPassword" validate:"required,min=8,hasupper,hasdigit"`
}

// Session is a freshly minted token together with the principal it
// describes.
type Session struct {
	Token string
	User  *models.User
}

type AuthService struct {
	db          dbx.Executor
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenMinter
	otp         *OTPService
	logger      logging.Logger

	sessionTTL  time.Duration
	registerTTL time.Duration
	now         func() time.Time
}

func NewAuthService(db dbx.Executor, m repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenMinter, otp *OTPService, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		otp:         otp,
		logger:      logger,
		sessionTTL:  cfg.SessionTokenTTL,
		registerTTL: cfg.RegisterTokenTTL,
		now:         time.Now,
	}
}

var errInvalidCredentials = common.Auth("Invalid email or password", common.ErrorUnauthorized)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkUnique reports taken usernames and emails as a conflict, one field
// error per clash. exceptID skips the user being edited.
func checkUnique(ctx context.Context, repo users.Repository, userName, email string, exceptID int64) error {
	var fields []common.FieldError

	taken, err := repo.UserNameTaken(ctx, userName, exceptID)
	if err != nil {
		return storageErr(err)
	}
	if taken {
		fields = append(fields, common.FieldError{Path: "username", Message: "Username already taken"})
	}

	taken, err = repo.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return storageErr(err)
	}
	if taken {
		fields = append(fields, common.FieldError{Path: "email", Message: "Email already taken"})
	}

	if len(fields) > 0 {
		return common.Conflict("Username or email already taken", fields...)
	}
	return nil
}

func conflictOnDuplicate(err error) error {
	var classified *common.Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, common.ErrorAlreadyExists) {
		return common.Conflict("Username or email already taken")
	}
	return storageErr(err)
}

func (s *AuthService) mint(u *models.User, ttl time.Duration) (string, error) {
	token, err := s.tokens.Mint(auth.UserClaims(u), ttl)
	if err != nil {
		return "", common.Transient("Failed to issue token", err)
	}
	return token, nil
}

// Register creates an unverified USER and returns a short-lived token for
// the OTP step.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
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
		Role:         models.RoleUser,
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

	token, err := s.mint(u, s.registerTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID, "public_id", u.PublicID)
	return &Session{Token: token, User: u}, nil
}

// Login answers an unknown email and a wrong password identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db.Conn()).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, storageErr(err)
	}

	ok, err := s.hasher.Verify(u.PasswordHash, in.Password)
	if err != nil {
		s.logger.Error(ctx, "stored password hash is malformed", "user_id", u.ID, "error", err)
		return nil, errInvalidCredentials
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	if u.IsBanned {
		return nil, common.AccessDenied("Account is banned")
	}

	token, err := s.mint(u, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

// RequestOTP issues a code to the token's principal, verified or not.
func (s *AuthService) RequestOTP(ctx context.Context, claims *auth.Claims) error {
	u, err := principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
	if err != nil {
		return err
	}
	return s.otp.Issue(ctx, u)
}

// ValidateOTP verifies the token's principal and returns a fresh token that
// carries isverified=true.
func (s *AuthService) ValidateOTP(ctx context.Context, claims *auth.Claims, in OTPInput) (*Session, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	u, err := principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
	if err != nil {
		return nil, err
	}

	res, err := s.otp.Validate(ctx, u, in.OTP)
	if err != nil {
		return nil, err
	}

	switch res {
	case OTPVerified:
		token, err := s.mint(u, s.sessionTTL)
		if err != nil {
			return nil, err
		}
		return &Session{Token: token, User: u}, nil
	case OTPExpired:
		return nil, common.AccessDenied("OTP expired")
	case OTPMismatch:
		return nil, common.Validation("Invalid OTP", common.FieldError{Path: "otp", Message: "Invalid OTP"})
	case OTPNotRequested:
		return nil, common.Validation("OTP not requested", common.FieldError{Path: "otp", Message: "OTP not requested"})
	default:
		return nil, common.Validation("Invalid OTP")
	}
}

// ResetPassword requires a verified principal inside an open OTP window and
// the current password. The window is closed afterwards.
func (s *AuthService) ResetPassword(ctx context.Context, claims *auth.Claims, in PasswordResetInput) error {
	repo := s.repomanager.Users(s.db.Conn())
	u, err := principal(ctx, repo, claims)
	if err != nil {
		return err
	}
	if !u.IsVerified {
		return common.AccessDenied("OTP verification required")
	}
	if u.OTPExp.IsZero() || s.now().After(u.OTPExp) {
		return common.AccessDenied("OTP expired")
	}

	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.NewPassword != in.NewRetryPassword {
		return common.Validation("Validation failed", common.FieldError{Path: "newPassword", Message: "Passwords do not match"})
	}

	ok, err := s.hasher.Verify(u.PasswordHash, in.Password)
	if err != nil || !ok {
		return common.Validation("Validation failed", common.FieldError{Path: "password", Message: "Current password is incorrect"})
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return storageErr(err)
	}

	s.logger.Info(ctx, "password reset", "user_id", u.ID)
	return nil
}

// Me returns the token's principal.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	return principal(ctx, s.repomanager.Users(s.db.Conn()), claims)
}
