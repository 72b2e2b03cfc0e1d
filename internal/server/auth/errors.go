package auth

import (
	"errors"
	"fmt"
)

// TokenErrorKind is the closed set of reasons a token is not trusted.
type TokenErrorKind int

const (
	TokenUnknown TokenErrorKind = iota
	TokenExpired
	TokenMalformed
	TokenSignatureMismatch
	TokenAlgorithmRejected
)

func (k TokenErrorKind) String() string {
	switch k {
	case TokenExpired:
		return "expired"
	case TokenMalformed:
		return "malformed"
	case TokenSignatureMismatch:
		return "signature_mismatch"
	case TokenAlgorithmRejected:
		return "algorithm_rejected"
	default:
		return "unknown"
	}
}

// TokenError is returned by Decode for every failure.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Message is the stable client-facing text for the kind.
func (e *TokenError) Message() string {
	switch e.Kind {
	case TokenExpired:
		return "JWT token expired"
	case TokenMalformed:
		return "JWT token invalid"
	case TokenSignatureMismatch:
		return "JWT token not suitable"
	case TokenAlgorithmRejected:
		return "Algorithm not allowed"
	default:
		return "JWT verification failed"
	}
}

// SigningError is returned by Mint.
type SigningError struct {
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err == nil {
		return "token signing failed: " + e.Reason
	}
	return fmt.Sprintf("token signing failed: %s: %v", e.Reason, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// TokenErrorKindOf returns the kind of a *TokenError in err's chain and
// TokenUnknown otherwise.
func TokenErrorKindOf(err error) TokenErrorKind {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Kind
	}
	return TokenUnknown
}
