package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/common"
	"github.com/dmitrijs2005/blogkeeper/internal/server/services"
)

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// authEvent records the outcome of an auth flow.
func (s *Server) authEvent(flow string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = common.KindOf(err).String()
	}
	s.metrics.AuthEvent(flow, outcome)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.auth.Register(r.Context(), in)
	s.authEvent("register", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token, s.registerTTL)
	ok(w, http.StatusCreated, "User registered", newSessionView(sess))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.auth.Login(r.Context(), in)
	s.authEvent("login", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token, s.sessionTTL)
	ok(w, http.StatusOK, "Logged in", newSessionView(sess))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	ok(w, http.StatusOK, "Logged out", nil)
}

func (s *Server) handleOTPRequest(w http.ResponseWriter, r *http.Request) {
	err := s.auth.RequestOTP(r.Context(), claimsFrom(r.Context()))
	s.authEvent("otp_request", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "OTP sent", nil)
}

func (s *Server) handleOTPValidate(w http.ResponseWriter, r *http.Request) {
	var in services.OTPInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	sess, err := s.auth.ValidateOTP(r.Context(), claimsFrom(r.Context()), in)
	s.authEvent("otp_validate", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.setSessionCookie(w, sess.Token, s.sessionTTL)
	ok(w, http.StatusOK, "OTP verified", newSessionView(sess))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "User", newUserView(u))
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var in services.PasswordResetInput
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	err := s.auth.ResetPassword(r.Context(), claimsFrom(r.Context()), in)
	s.authEvent("password_reset", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "Password updated", nil)
}
