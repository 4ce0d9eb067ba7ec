package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/validation"
)

func TestMap(t *testing.T) {
	errTaken := AlreadyExists("username taken")

	cases := []struct {
		name   string
		in     error
		status int
		msg    string
	}{
		{"app error passes through", errTaken, http.StatusConflict, "username taken"},
		{"wrapped app error", fmt.Errorf("register: %w", errTaken), http.StatusConflict, "username taken"},
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound, "record not found"},
		{"duplicate key", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), http.StatusConflict, "record already exists"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"canceled", context.Canceled, 499, "request was canceled"},
		{"validation", &validation.Error{Fields: []validation.FieldError{{Field: "email", Message: "email is required"}}}, http.StatusBadRequest, "email is required"},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Map(tc.in)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.msg, got.Message)
		})
	}

	assert.Nil(t, Map(nil))
}

func TestCodedConstructors(t *testing.T) {
	denied := PermissionDenied("TOKEN_INVALID", "Token is not valid")
	assert.Equal(t, http.StatusForbidden, denied.Status)
	assert.Equal(t, "TOKEN_INVALID", denied.Code)

	unauth := Unauthorized("TOKEN_EXPIRED", "Token has expired")
	assert.Equal(t, http.StatusUnauthorized, unauth.Status)
	assert.False(t, stderrors.Is(denied, Forbidden("Token is not valid")))
}

func TestAppError_WrapKeepsIdentity(t *testing.T) {
	sentinel := Upstream("movie catalog unavailable")
	wrapped := sentinel.Wrap(stderrors.New("dial tcp: refused"))

	assert.True(t, stderrors.Is(wrapped, sentinel))
	assert.Contains(t, wrapped.Error(), "dial tcp")
	assert.Equal(t, "movie catalog unavailable", wrapped.Message)
	assert.False(t, stderrors.Is(wrapped, Upstream("something else")))
}
