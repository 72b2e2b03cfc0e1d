package services

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/throttle"
	"github.com/dmitrijs2005/blogkeeper/internal/shared"
)

const (
	OTPLength = 6
	OTPTTL    = 10 * time.Minute
)

// OTPResult is the outcome of validating a supplied code.
type OTPResult int

const (
	OTPVerified OTPResult = iota
	OTPExpired
	OTPMismatch
	OTPNotRequested
)

func (r OTPResult) String() string {
	switch r {
	case OTPVerified:
		return "verified"
	case OTPExpired:
		return "expired"
	case OTPMismatch:
		return "mismatch"
	case OTPNotRequested:
		return "not_requested"
	default:
		return "unknown"
	}
}

type OTPService struct {
	db          dbx.Executor
	repomanager repomanager.RepositoryManager
	sender      mailer.Sender
	throttle    throttle.Throttle
	cooldown    time.Duration
	logger      logging.Logger

	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(db dbx.Executor, m repomanager.RepositoryManager, sender mailer.Sender, th throttle.Throttle, cooldown time.Duration, logger logging.Logger) *OTPService {
	return &OTPService{
		db:          db,
		repomanager: m,
		sender:      sender,
		throttle:    th,
		cooldown:    cooldown,
		logger:      logger,
		now:         time.Now,
		generate:    func() (string, error) { return shared.RandomCode(OTPLength) },
	}
}

// Issue sends a fresh code to u and, once the provider accepted it, stores
// the code with a 10 minute expiry. A failed dispatch stores nothing.
func (s *OTPService) Issue(ctx context.Context, u *models.User) error {
	key := throttle.Key(u.Subject())
	ok, err := s.throttle.Acquire(ctx, key, s.cooldown)
	if err != nil {
		return common.Transient("OTP throttle unavailable", err)
	}
	if !ok {
		return common.RateLimited("Please wait before requesting another OTP")
	}

	code, err := s.generate()
	if err != nil {
		s.release(ctx, key)
		return err
	}

	if err := s.sender.SendOTP(ctx, u.Email, code); err != nil {
		s.release(ctx, key)
		return common.Transient("Failed to send OTP", err)
	}

	exp := s.now().Add(OTPTTL)
	if err := s.repomanager.Users(s.db.Conn()).SetOTP(ctx, u.ID, code, exp); err != nil {
		s.release(ctx, key)
		return storageErr(err)
	}
	u.OTP, u.OTPExp = code, exp

	s.logger.Info(ctx, "otp issued", "user_id", u.ID, "expires_at", exp)
	return nil
}

func (s *OTPService) release(ctx context.Context, key string) {
	if err := s.throttle.Release(ctx, key); err != nil {
		s.logger.Warn(ctx, "otp throttle release failed", "key", key, "error", err)
	}
}

// Validate checks code against the one stored on u. On a match the code is
// consumed in storage and u is marked verified; if another request consumed
// it first the result is OTPMismatch.
func (s *OTPService) Validate(ctx context.Context, u *models.User, code string) (OTPResult, error) {
	if u.OTP == "" || u.OTPExp.IsZero() {
		return OTPNotRequested, nil
	}
	now := s.now()
	if now.After(u.OTPExp) {
		return OTPExpired, nil
	}
	if subtle.ConstantTimeCompare([]byte(u.OTP), []byte(code)) != 1 {
		return OTPMismatch, nil
	}

	consumed, err := s.repomanager.Users(s.db.Conn()).ConsumeOTP(ctx, u.ID, code, now)
	if err != nil {
		return OTPMismatch, storageErr(err)
	}
	if !consumed {
		return OTPMismatch, nil
	}

	u.OTP = ""
	u.IsVerified = true
	return OTPVerified, nil
}
