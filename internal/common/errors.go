package common

import (
	"context"
	"errors"
)

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
)

// Kind classifies a failure for callers that have to pick a response.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindAccessDenied
	KindRateLimited
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAccessDenied:
		return "access_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FieldError points at a single offending input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is a classified failure. Message is safe to show to clients,
// Err is kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Auth(msg string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Err: cause}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: ErrorNotFound}
}

func Conflict(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindConflict, Message: msg, Fields: fields, Err: ErrorAlreadyExists}
}

func AccessDenied(msg string) *Error {
	return &Error{Kind: KindAccessDenied, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

func Transient(msg string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: cause}
}

// KindOf classifies any error. Errors that carry no classification and are
// not one of the known sentinels are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransient
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	case errors.Is(err, ErrorAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken):
		return KindAuth
	}

	return KindUnknown
}

// FieldsOf returns the field errors attached to err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// PublicMessage returns the client-facing message of a classified error and
// an empty string otherwise.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
