// internal/errors/mapper.go
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/validation"
)

// AppError is an error that already knows how it should look to an API client.
type AppError struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches two AppErrors by status and code so that wrapped sentinels compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of e carrying cause for logs; the client still sees e.Message.
func (e *AppError) Wrap(cause error) *AppError {
	return &AppError{Status: e.Status, Code: e.Code, Message: e.Message, cause: cause}
}

func newErr(status int, code, msg string) *AppError {
	return &AppError{Status: status, Code: code, Message: msg}
}

// InvalidArgument creates a 400 error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) *AppError {
	return newErr(http.StatusBadRequest, "INVALID_ARGUMENT", msg)
}

// AlreadyExists creates a 409 error.
func AlreadyExists(msg string) *AppError {
	return newErr(http.StatusConflict, "ALREADY_EXISTS", msg)
}

func NotFound(msg string) *AppError {
	return newErr(http.StatusNotFound, "NOT_FOUND", msg)
}

func Forbidden(msg string) *AppError {
	return newErr(http.StatusForbidden, "FORBIDDEN", msg)
}

// PermissionDenied creates a 403 carrying a specific code, for credentials
// that were presented but rejected.
func PermissionDenied(code, msg string) *AppError {
	return newErr(http.StatusForbidden, code, msg)
}

func Unauthorized(code, msg string) *AppError {
	return newErr(http.StatusUnauthorized, code, msg)
}

// Upstream creates a 502 for failures of the external movie catalog.
func Upstream(msg string) *AppError {
	return newErr(http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", msg)
}

func Internal(msg string) *AppError {
	return newErr(http.StatusInternalServerError, "INTERNAL", msg)
}

// Map converts repo/infra errors into client-facing errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var verr *validation.Error
	if stderrors.As(err, &verr) {
		return InvalidArgument(verr.Error()).Wrap(err)
	}

	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("record not found").Wrap(err)

	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return AlreadyExists("record already exists").Wrap(err)

	case stderrors.Is(err, context.DeadlineExceeded):
		return newErr(http.StatusGatewayTimeout, "TIMEOUT", "request timed out").Wrap(err)

	case stderrors.Is(err, context.Canceled):
		// 499 is the de-facto status for a client that went away.
		return newErr(499, "CANCELED", "request was canceled").Wrap(err)

	default:
		return Internal("internal server error").Wrap(err)
	}
}
