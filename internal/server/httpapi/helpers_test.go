package httpapi

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/cryptox"
	"github.com/dmitrijs2005/blogkeeper/internal/dbx"
	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/dmitrijs2005/blogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/dmitrijs2005/blogkeeper/internal/server/throttle"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	sent map[string]string
}

func (s *captureSender) SendOTP(_ context.Context, to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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

type harness struct {
	handler http.Handler
	codec   *auth.Codec
	sender  *captureSender
	repos   *repomanager.MemoryRepositoryManager
	hasher  *cryptox.PasswordHasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	codec, err := auth.NewCodec(priv, &priv.PublicKey, "blogkeeper-test")
	require.NoError(t, err)
	hasher, err := cryptox.NewPasswordHasher("pepper", cryptox.WithParams(cryptox.Params{
		Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	}))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	db := dbx.NopExecutor{}
	logger := logging.Nop()
	repos := repomanager.NewMemoryRepositoryManager()
	sender := &captureSender{}

	// accounts behind the tokens minted by h.mint
	for _, u := range []*models.User{
		{Email: "a@example.com", UserName: "root", PasswordHash: "x", Role: models.RoleAdmin, IsVerified: true},
		{Email: "u@example.com", UserName: "user", PasswordHash: "x", Role: models.RoleUser, IsVerified: true},
	} {
		_, err := repos.Users(nil).Create(context.Background(), u)
		require.NoError(t, err)
	}

	otp := services.NewOTPService(db, repos, sender, throttle.Nop{}, cfg.OTPCooldown, logger)
	srv := NewServer(cfg, logger, codec,
		services.NewAuthService(db, repos, hasher, codec, otp, cfg, logger),
		services.NewAdminService(db, repos, hasher, logger),
		services.NewPostService(db, repos, logger),
		metrics.New(),
	)

	return &harness{handler: srv.Router(), codec: codec, sender: sender, repos: repos, hasher: hasher}
}

// request carries the token as a bearer header unless cookie is set.
type request struct {
	method string
	path   string
	body   any
	token  string
	cookie string
}

func (h *harness) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(req.body))
	}
	r := httptest.NewRequest(req.method, req.path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.cookie != "" {
		r.AddCookie(&http.Cookie{Name: common.TokenCookieName, Value: req.cookie})
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, r)
	return w
}

type response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   bool            `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decode(t, w).Data, out))
}

func (h *harness) mint(t *testing.T, email string, role models.Role, verified bool) string {
	t.Helper()
	token, err := h.codec.Mint(auth.Claims{
		Email:            email,
		Role:             role,
		IsVerified:       verified,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "UID-001001001"},
	}, time.Hour)
	require.NoError(t, err)
	return token
}
