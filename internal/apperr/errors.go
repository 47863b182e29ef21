// Package apperr defines the closed set of failures the API reports to callers.
package apperr

import (
	"errors"
	"net/http"

	"todo-backend/pkg/schema"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindInvalidToken
	KindNotFound
	KindRateLimited
)

// Error is the only error type that crosses the service/HTTP boundary.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to its HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInvalidCredentials, KindInvalidToken:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: schema.CodeValidation, Message: msg}
}

func EmailExists() *Error {
	return &Error{Kind: KindConflict, Code: schema.CodeEmailExists, Message: "email already registered"}
}

// InvalidCredentials never says which half of the credentials was wrong.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Code: schema.CodeInvalidCredentials, Message: "invalid email or password"}
}

// InvalidToken covers unknown, revoked and expired tokens alike.
func InvalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Code: schema.CodeInvalidToken, Message: "invalid or expired token"}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: schema.CodeNotFound, Message: what + " not found"}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Code: schema.CodeRateLimited, Message: "too many requests"}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: schema.CodeInternal, Message: "internal error", Err: err}
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
