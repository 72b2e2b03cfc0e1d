package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureSender struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	calls int
}

func (s *captureSender) SendOTP(_ context.Context, to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = make(map[string]string)
	}
	s.sent[to] = code
	return nil
}

func (s *captureSender) last(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[to]
}

// memThrottle is a map-backed throttle without expiry.
type memThrottle struct {
	mu   sync.Mutex
	held map[string]bool
}

func (m *memThrottle) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = make(map[string]bool)
	}
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memThrottle) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

type env struct {
	clock    *clock
	sender   *captureSender
	throttle *memThrottle
	repos    *repomanager.MemoryRepositoryManager
	codec    *auth.Codec
	hasher   *cryptox.PasswordHasher

	otp   *OTPService
	auth  *AuthService
	admin *AdminService
	posts *PostService
}

var fastParams = cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newEnv(t *testing.T) *env {
	t.Helper()

	clk := &clock{t: time.Date(2024, time.March, 17, 12, 0, 0, 0, time.UTC)}
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	codec, err := auth.NewCodec(priv, &priv.PublicKey, "blogkeeper-test", auth.WithClock(clk.Now))
	require.NoError(t, err)
	hasher, err := cryptox.NewPasswordHasher("pepper", cryptox.WithParams(fastParams))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	e := &env{
		clock:    clk,
		sender:   &captureSender{},
		throttle: &memThrottle{},
		repos:    repomanager.NewMemoryRepositoryManager(),
		codec:    codec,
		hasher:   hasher,
	}
	db := dbx.NopExecutor{}
	logger := logging.Nop()

	e.otp = NewOTPService(db, e.repos, e.sender, e.throttle, cfg.OTPCooldown, logger)
	e.otp.now = clk.Now
	e.auth = NewAuthService(db, e.repos, hasher, codec, e.otp, cfg, logger)
	e.auth.now = clk.Now
	e.admin = NewAdminService(db, e.repos, hasher, logger)
	e.posts = NewPostService(db, e.repos, logger)
	return e
}

func (e *env) register(t *testing.T, name string) *Session {
	t.Helper()
	s, err := e.auth.Register(context.Background(), RegisterInput{
		UserName: name,
		Email:    name + "@example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)
	return s
}

func (e *env) claims(t *testing.T, token string) *auth.Claims {
	t.Helper()
	c, err := e.codec.Decode(token)
	require.NoError(t, err)
	return c
}

// verified registers name and runs the OTP flow, returning verified claims.
func (e *env) verified(t *testing.T, name string) *auth.Claims {
	t.Helper()
	ctx := context.Background()
	s := e.register(t, name)
	c := e.claims(t, s.Token)
	require.NoError(t, e.auth.RequestOTP(ctx, c))
	v, err := e.auth.ValidateOTP(ctx, c, OTPInput{OTP: e.sender.last(s.User.Email)})
	require.NoError(t, err)
	return e.claims(t, v.Token)
}

// adminClaims creates a verified ADMIN directly in storage and returns its claims.
func (e *env) adminClaims(t *testing.T) *auth.Claims {
	t.Helper()
	hash, err := e.hasher.Hash("Admin1234")
	require.NoError(t, err)
	u, err := e.repos.Users(nil).Create(context.Background(), &models.User{
		Email: "root@example.com", UserName: "root", PasswordHash: hash, Role: models.RoleAdmin, IsVerified: true,
	})
	require.NoError(t, err)
	c := auth.UserClaims(u)
	return &c
}

func (e *env) user(t *testing.T, id int64) *models.User {
	t.Helper()
	u, err := e.repos.Users(nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")
