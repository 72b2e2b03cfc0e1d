package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/blogkeeper/internal/server/policy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey string

const (
	requestKey ctxKey = "request"
	claimsKey  ctxKey = "claims"
)

// requestInfo is shared by the middleware chain of one request.
type requestInfo struct {
	id     string
	reason string
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &requestInfo{id: uuid.NewString()}
		w.Header().Set("X-Request-ID", info.id)
		ctx := context.WithValue(r.Context(), requestKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestKey).(*requestInfo)
	return info
}

func requestIDFrom(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error(r.Context(), "panic recovered", "request_id", requestIDFrom(r.Context()), "panic", rec)
				s.fail(w, r, common.ErrorInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request and observes its latency by route pattern.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, status, elapsed)

		var reason string
		if info := requestInfoFrom(r.Context()); info != nil {
			reason = info.reason
		}
		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", requestIDFrom(r.Context()),
			"policy", reason,
		)
	})
}

// tokenFrom returns the session token of r. The cookie wins over the
// Authorization header.
func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(common.TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get(common.AuthorizationHeaderName)
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// gate decodes the request's token and applies the route policy before any
// handler runs. Decoded claims are passed on in the request context.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := policy.Absent()
		var claims *auth.Claims
		var tokenErr *auth.TokenError

		if raw := tokenFrom(r); raw != "" {
			c, err := s.tokens.Decode(raw)
			if err != nil {
				state = policy.Invalid()
				tokenErr = &auth.TokenError{Kind: auth.TokenErrorKindOf(err)}
				s.logger.Debug(ctx, "token rejected", "request_id", requestIDFrom(ctx), "kind", auth.TokenErrorKindOf(err).String())
			} else {
				claims = c
				state = policy.Valid(c.Role, c.IsVerified)
			}
		}

		d := policy.Decide(state, r.URL.Path)
		s.metrics.GateDecision(d.Action.String(), d.Reason)
		if info := requestInfoFrom(ctx); info != nil {
			info.reason = d.Reason
		}

		switch d.Action {
		case policy.Redirect:
			http.Redirect(w, r, d.Location, http.StatusFound)
		case policy.Reject:
			msg := d.Message
			if tokenErr != nil && d.Status == http.StatusUnauthorized {
				msg = tokenErr.Message()
			}
			writeJSON(w, d.Status, envelope{Message: msg, Error: true})
		default:
			if claims != nil {
				ctx = context.WithValue(ctx, claimsKey, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.timeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
