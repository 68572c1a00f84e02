// Package apperr holds the request-rejecting error taxonomy shared by the
// account, transfer and fee services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	InactiveAccount       Kind = "INACTIVE_ACCOUNT"
	AccountNotFound       Kind = "ACCOUNT_NOT_FOUND"
	InsufficientBalance   Kind = "INSUFFICIENT_BALANCE"
	InvalidTransfer       Kind = "INVALID_TRANSFER"
	InvalidValue          Kind = "INVALID_VALUE"
	InvalidType           Kind = "INVALID_TYPE"
	InvalidArgument       Kind = "INVALID_ARGUMENT"
	InvalidDocument       Kind = "INVALID_DOCUMENT"
	UserUnauthorized      Kind = "USER_UNAUTHORIZED"
	UnauthorizedOperation Kind = "INVALID_OPERATION"
	UpstreamFailure       Kind = "UPSTREAM_FAILURE"
	IdempotencyConflict   Kind = "IDEMPOTENCY_CONFLICT"
	DuplicateInFlight     Kind = "DUPLICATE_IN_FLIGHT"
	NotFound              Kind = "NOT_FOUND"
	Internal              Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, apperr.E(kind, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func E(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns Internal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-facing message; internals never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}

func HTTPStatus(k Kind) int {
	switch k {
	case AccountNotFound, NotFound:
		return http.StatusNotFound
	case UserUnauthorized:
		return http.StatusUnauthorized
	case UnauthorizedOperation:
		return http.StatusForbidden
	case IdempotencyConflict, DuplicateInFlight:
		return http.StatusConflict
	case InsufficientBalance, InactiveAccount:
		return http.StatusUnprocessableEntity
	case InvalidTransfer, InvalidValue, InvalidType, InvalidArgument, InvalidDocument:
		return http.StatusBadRequest
	case UpstreamFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
