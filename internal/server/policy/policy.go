// Package policy decides, per request path, whether a request may proceed
// given the state of its session token.
package policy

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/blogkeeper/internal/server/models"
)

// TokenStatus is the outcome of decoding the request's token.
type TokenStatus int

const (
	TokenAbsent TokenStatus = iota
	TokenInvalid
	TokenValid
)

// TokenState describes the request's credentials. Role and Verified are
// meaningful only when Status is TokenValid.
type TokenState struct {
	Status   TokenStatus
	Role     models.Role
	Verified bool
}

func Absent() TokenState  { return TokenState{Status: TokenAbsent} }
func Invalid() TokenState { return TokenState{Status: TokenInvalid} }

func Valid(role models.Role, verified bool) TokenState {
	return TokenState{Status: TokenValid, Role: role, Verified: verified}
}

// Action is what the gate does with the request.
type Action int

const (
	Allow Action = iota
	Redirect
	Reject
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide. Location is set for Redirect, Status
// and Message for Reject. Reason is a stable label for logs and metrics.
type Decision struct {
	Action   Action
	Location string
	Status   int
	Message  string
	Reason   string
}

const (
	PathNotFound = "/notfound"
	PathOTP      = "/otp"
)

type class int

const (
	classAdminAPI class = iota
	classProtectedAPI
	classAdminPage
	classProtectedPage
	classOTPPage
	classAuthPage
	classPublic
	classUnknownAPI
	classUnknownPage
)

type rule struct {
	prefix string
	exact  bool
	class  class
}

// rules are ordered most specific first.
var rules = []rule{
	{prefix: "/api/protected/user/admin", class: classAdminAPI},
	{prefix: "/api/protected", class: classProtectedAPI},
	{prefix: "/admin", class: classAdminPage},
	{prefix: "/dashboard", class: classProtectedPage},
	{prefix: "/otp", class: classOTPPage},
	{prefix: "/login", class: classAuthPage},
	{prefix: "/register", class: classAuthPage},
	{prefix: "/logout", class: classPublic},
	{prefix: "/notfound", class: classPublic},
	{prefix: "/", exact: true, class: classPublic},
	{prefix: "/blog", class: classPublic},
	{prefix: "/api/auth", class: classPublic},
	{prefix: "/api/post", class: classPublic},
	{prefix: "/healthz", class: classPublic},
	{prefix: "/metrics", class: classPublic},
	{prefix: "/api", class: classUnknownAPI},
}

// hasSegmentPrefix reports whether path equals prefix or continues it with
// a new segment: "/admin" matches "/admin/users" but not "/administrator".
func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func classify(path string) class {
	if path == "" {
		path = "/"
	}
	for _, r := range rules {
		if r.exact {
			if path == r.prefix {
				return r.class
			}
			continue
		}
		if hasSegmentPrefix(path, r.prefix) {
			return r.class
		}
	}
	return classUnknownPage
}

func allow(reason string) Decision {
	return Decision{Action: Allow, Reason: reason}
}

func redirect(to, reason string) Decision {
	return Decision{Action: Redirect, Location: to, Reason: reason}
}

func reject(status int, msg, reason string) Decision {
	return Decision{Action: Reject, Status: status, Message: msg, Reason: reason}
}

// Decide applies the route policy. It has no side effects.
func Decide(state TokenState, path string) Decision {
	switch classify(path) {
	case classAdminAPI:
		return decideAPI(state, true)
	case classProtectedAPI:
		return decideAPI(state, false)
	case classAdminPage:
		return decidePage(state, true)
	case classProtectedPage:
		return decidePage(state, false)
	case classOTPPage:
		if state.Status == TokenValid && state.Verified {
			return redirect(state.Role.Home(), "already_verified")
		}
		return allow("otp_page")
	case classAuthPage:
		if state.Status == TokenValid {
			if state.Verified {
				return redirect(state.Role.Home(), "already_authenticated")
			}
			return redirect(PathOTP, "verification_required")
		}
		return allow("auth_page")
	case classPublic:
		return allow("public")
	case classUnknownAPI:
		return reject(http.StatusNotFound, "Not found", "unknown_route")
	default:
		return redirect(PathNotFound, "unknown_route")
	}
}

func decideAPI(state TokenState, adminOnly bool) Decision {
	switch {
	case state.Status == TokenAbsent:
		return reject(http.StatusUnauthorized, "Unauthorized", "token_absent")
	case state.Status == TokenInvalid:
		return reject(http.StatusUnauthorized, "Unauthorized", "token_invalid")
	case !state.Verified:
		return reject(http.StatusForbidden, "verification required", "verification_required")
	case adminOnly && state.Role != models.RoleAdmin:
		return reject(http.StatusForbidden, "Forbidden", "role_mismatch")
	}
	return allow("authorized")
}

func decidePage(state TokenState, adminOnly bool) Decision {
	switch {
	case state.Status == TokenAbsent:
		return redirect(PathNotFound, "token_absent")
	case state.Status == TokenInvalid:
		return redirect(PathNotFound, "token_invalid")
	case !state.Verified:
		return redirect(PathOTP, "verification_required")
	case adminOnly && state.Role != models.RoleAdmin:
		return redirect(PathNotFound, "role_mismatch")
	}
	return allow("authorized")
}
