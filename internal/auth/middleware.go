package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/server"
)

type ctxKey struct{}

// WithAccountID stores the authenticated account id in ctx.
func WithAccountID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// AccountID returns the authenticated account id, if any.
func AccountID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint64)
	return id, ok && id != 0
}

// Middleware requires a valid bearer access token.
// Missing and expired tokens are 401, anything else unparseable is 403.
func Middleware(m *Manager, rs *server.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				rs.Error(w, r, ErrTokenMissing)
				return
			}

			claims, err := m.ValidateToken(token)
			if err != nil {
				rs.Error(w, r, err)
				return
			}

			ctx := WithAccountID(r.Context(), claims.AccountID)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx, rs.Logger).With("account_id", claims.AccountID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
