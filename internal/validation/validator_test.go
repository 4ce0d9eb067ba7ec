package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string  `json:"username" validate:"required,min=3,max=30"`
	Email    string  `json:"email" validate:"required,email"`
	Answer   string  `json:"securityAnswer" validate:"notblank"`
	Type     string  `json:"type" validate:"omitempty,oneof=public private"`
	Rating   float64 `json:"rating" validate:"gte=0,lte=10"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(&sample{Username: "alice", Email: "alice@x.com", Answer: "cat", Type: "public", Rating: 7})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(&sample{Username: "al", Email: "nope", Answer: "   ", Type: "secret", Rating: 11})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))

	byField := map[string]string{}
	for _, f := range verr.Fields {
		byField[f.Field] = f.Message
	}

	assert.Equal(t, "username must be at least 3 characters long", byField["username"])
	assert.Equal(t, "email must be a valid email address", byField["email"])
	assert.Equal(t, "securityAnswer cannot be empty", byField["securityAnswer"])
	assert.Equal(t, "type must be one of: public private", byField["type"])
	assert.Equal(t, "rating must be less than or equal to 10", byField["rating"])
}

func TestStruct_BcryptMaxCountsBytes(t *testing.T) {
	type pw struct {
		Password string `json:"password" validate:"bcryptmax"`
	}

	assert.NoError(t, Struct(&pw{Password: strings.Repeat("é", 36)}))

	err := Struct(&pw{Password: strings.Repeat("é", 37)})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "password must be at most 72 bytes long", verr.Fields[0].Message)
}
