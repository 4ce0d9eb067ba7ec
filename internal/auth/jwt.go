package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oggyb/movie-rating/internal/config"
	apperr "github.com/oggyb/movie-rating/internal/errors"
)

// PurposeReset marks a token that may only be used to reset a password.
const PurposeReset = "password-reset"

var (
	ErrTokenMissing = apperr.Unauthorized("TOKEN_MISSING", "No token, authorization denied")
	ErrTokenExpired = apperr.Unauthorized("TOKEN_EXPIRED", "Token has expired")
	ErrTokenInvalid = apperr.PermissionDenied("TOKEN_INVALID", "Token is not valid")

	ErrResetTokenInvalid = apperr.InvalidArgument("Invalid or expired reset token")
)

// Claims carries the account id. Purpose is empty for access tokens.
type Claims struct {
	AccountID uint64 `json:"userId"`
	Purpose   string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewManager(cfg *config.Config) (*Manager, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required but was empty")
	}
	return &Manager{
		secret:   []byte(cfg.Auth.JWTSecret),
		ttl:      cfg.Auth.TokenTTL,
		resetTTL: cfg.Auth.ResetTokenTTL,
		now:      time.Now,
	}, nil
}

// ResetTTL is how long a reset token stays usable.
func (m *Manager) ResetTTL() time.Duration { return m.resetTTL }

// GenerateToken issues an access token for accountID.
func (m *Manager) GenerateToken(accountID uint64) (string, error) {
	return m.sign(accountID, "", "", m.ttl)
}

// GenerateResetToken issues a single-purpose reset token and returns its jti.
func (m *Manager) GenerateResetToken(accountID uint64) (token, jti string, err error) {
	jti = uuid.NewString()
	token, err = m.sign(accountID, PurposeReset, jti, m.resetTTL)
	return token, jti, err
}

func (m *Manager) sign(accountID uint64, purpose, jti string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := &Claims{
		AccountID: accountID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired.Wrap(err)
	}
	if err != nil {
		return nil, ErrTokenInvalid.Wrap(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AccountID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ValidateToken accepts only access tokens.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ValidateResetToken accepts only reset tokens that carry a jti.
func (m *Manager) ValidateResetToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, ErrResetTokenInvalid.Wrap(err)
	}
	if claims.Purpose != PurposeReset || claims.ID == "" {
		return nil, ErrResetTokenInvalid
	}
	return claims, nil
}
