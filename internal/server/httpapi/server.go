// Package httpapi is the HTTP transport of the blogkeeper server: the chi
// router, the request gate and the JSON handlers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/logging"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/config"
	"github.com/dmitrijs2005/blogkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// TokenDecoder is satisfied by *auth.Codec.
type TokenDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

type Server struct {
	address string
	tokens  TokenDecoder
	auth    *services.AuthService
	admin   *services.AdminService
	posts   *services.PostService
	metrics *metrics.Metrics
	logger  logging.Logger

	cookieSecure bool
	sessionTTL   time.Duration
	registerTTL  time.Duration
	timeout      time.Duration
	now          func() time.Time
}

func NewServer(cfg *config.Config, l logging.Logger, tokens TokenDecoder, as *services.AuthService, ads *services.AdminService, ps *services.PostService, m *metrics.Metrics) *Server {
	return &Server{
		address:      cfg.HTTPAddr,
		tokens:       tokens,
		auth:         as,
		admin:        ads,
		posts:        ps,
		metrics:      m,
		logger:       l.With("module", "http_server"),
		cookieSecure: cfg.CookieSecure,
		sessionTTL:   cfg.SessionTokenTTL,
		registerTTL:  cfg.RegisterTokenTTL,
		timeout:      cfg.RequestTimeout,
		now:          time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID, s.accessLog, s.recoverer, s.gate, s.withTimeout)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Not found", Error: true})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Message: "Method not allowed", Error: true})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope{Message: "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/otp/request", s.handleOTPRequest)
		r.Post("/otp/validate", s.handleOTPValidate)
	})

	r.Route("/api/post", func(r chi.Router) {
		r.Get("/", s.handleListPosts)
		r.Get("/user/{username}", s.handleUserPosts)
		r.Get("/{slug}", s.handlePostBySlug)
	})

	r.Route("/api/protected", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Get("/myuser", s.handleMe)
			r.Put("/password-reset", s.handlePasswordReset)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)
				r.Get("/permanent", s.handleUserTrash)
				r.Delete("/permanent", s.handlePurgeUsers)
				r.Post("/permanent/recovery", s.handleRecoverUsers)
				r.Put("/{userId}", s.handleUpdateUser)
				r.Delete("/{userId}", s.handleDeleteUser)
				r.Patch("/{userId}/ban", s.handleBanUser)
			})
		})

		r.Route("/post", func(r chi.Router) {
			r.Post("/", s.handleCreatePost)
			r.Get("/permanent", s.handlePostTrash)
			r.Post("/permanent/recovery", s.handleRecoverPosts)
			r.Delete("/permanent/delete", s.handlePurgePosts)
			r.Put("/{id}", s.handleUpdatePost)
			r.Delete("/{id}", s.handleDeletePost)
		})
	})

	for _, p := range []string{"/", "/login", "/register", "/otp", "/notfound", "/dashboard", "/admin", "/admin/*", "/blog", "/blog/*"} {
		r.Get(p, s.handlePage)
	}
	r.Get("/logout", s.handleLogoutPage)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
