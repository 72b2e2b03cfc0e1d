package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	h := newHarness(t)
	user := h.mint(t, "u@example.com", models.RoleUser, true)
	unverified := h.mint(t, "u@example.com", models.RoleUser, false)
	admin := h.mint(t, "a@example.com", models.RoleAdmin, true)

	tests := []struct {
		name     string
		req      request
		status   int
		location string
		message  string
	}{
		{name: "api without token", req: request{method: http.MethodGet, path: "/api/protected/user/myuser"}, status: http.StatusUnauthorized, message: "Unauthorized"},
		{name: "api with garbage token", req: request{method: http.MethodGet, path: "/api/protected/user/myuser", token: "not-a-token"}, status: http.StatusUnauthorized, message: "JWT token invalid"},
		{name: "api unverified", req: request{method: http.MethodGet, path: "/api/protected/user/myuser", token: unverified}, status: http.StatusForbidden, message: "verification required"},
		{name: "admin api as user", req: request{method: http.MethodGet, path: "/api/protected/user/admin", token: user}, status: http.StatusForbidden, message: "Forbidden"},
		{name: "admin api as admin", req: request{method: http.MethodGet, path: "/api/protected/user/admin", token: admin}, status: http.StatusOK},
		{name: "unknown api", req: request{method: http.MethodGet, path: "/api/nowhere"}, status: http.StatusNotFound, message: "Not found"},
		{name: "dashboard without token", req: request{method: http.MethodGet, path: "/dashboard"}, status: http.StatusFound, location: "/notfound"},
		{name: "dashboard unverified", req: request{method: http.MethodGet, path: "/dashboard", cookie: unverified}, status: http.StatusFound, location: "/otp"},
		{name: "admin page as user", req: request{method: http.MethodGet, path: "/admin/users", cookie: user}, status: http.StatusFound, location: "/notfound"},
		{name: "login when verified", req: request{method: http.MethodGet, path: "/login", cookie: admin}, status: http.StatusFound, location: "/admin"},
		{name: "otp when verified", req: request{method: http.MethodGet, path: "/otp", cookie: user}, status: http.StatusFound, location: "/dashboard"},
		{name: "unknown page", req: request{method: http.MethodGet, path: "/somewhere"}, status: http.StatusFound, location: "/notfound"},
		{name: "public page", req: request{method: http.MethodGet, path: "/blog/some-post"}, status: http.StatusOK},
		{name: "health", req: request{method: http.MethodGet, path: "/healthz"}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			if tt.message != "" {
				resp := decode(t, w)
				assert.True(t, resp.Error)
				assert.Equal(t, tt.message, resp.Message)
			}
		})
	}
}

func TestBannedAdminTokenIsRefused(t *testing.T) {
	h := newHarness(t)
	token := h.mint(t, "a@example.com", models.RoleAdmin, true)
	u, err := h.repos.Users(nil).GetByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NoError(t, h.repos.Users(nil).SetBanned(context.Background(), u.ID, true))

	w := h.do(t, request{method: http.MethodGet, path: "/api/protected/user/admin", token: token})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account is banned", decode(t, w).Message)
}

func TestGate_CookieWinsOverHeader(t *testing.T) {
	h := newHarness(t)
	valid := h.mint(t, "a@example.com", models.RoleAdmin, true)

	w := h.do(t, request{method: http.MethodGet, path: "/api/protected/user/admin", token: valid, cookie: "not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, request{method: http.MethodGet, path: "/api/protected/user/admin", token: "not-a-token", cookie: valid})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGate_TamperedToken(t *testing.T) {
	h := newHarness(t)
	token := h.mint(t, "a@example.com", models.RoleAdmin, true)
	// flip a signature byte
	tampered := token[:len(token)-4] + strings.Repeat("A", 4)
	if tampered == token {
		tampered = token[:len(token)-4] + strings.Repeat("B", 4)
	}

	w := h.do(t, request{method: http.MethodGet, path: "/api/protected/user/admin", token: tampered})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(t, request{method: http.MethodGet, path: "/dashboard"})

	w := h.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `blogkeeper_gate_decisions_total{action="redirect",reason="token_absent"} 1`)
	assert.Contains(t, body, "blogkeeper_http_request_duration_seconds")
}
