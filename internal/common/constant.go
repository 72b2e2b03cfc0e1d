// Package common contains shared constants, sentinel errors and the error
// taxonomy used across the blogkeeper server.
package common

// TokenCookieName is the cookie that carries the session token.
const TokenCookieName = "token"

// AuthorizationHeaderName carries the session token as "Bearer <token>"
// when no cookie is present.
const AuthorizationHeaderName = "Authorization"

// UnknownErrorMessage prefixes the message returned for unclassified failures.
// The caller appends a correlation timestamp in unix milliseconds.
const UnknownErrorMessage = "Unknown error, please report to admin or customer service, time error: "
