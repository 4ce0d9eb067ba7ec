package app

import (
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/moviecache"
	"github.com/oggyb/movie-rating/internal/server"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.).
// cmd/server builds one and closes DB and Redis on shutdown; services only borrow it.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Catalog    *catalog.Client
	Tokens     *auth.Manager
	Movies     *moviecache.Resolver
	Responder  *server.Responder
}

// New creates a new AppContext and derives the movie resolver and responder
// from the given dependencies.
func New(
	cfg *config.Config,
	database *gorm.DB,
	rdb *cache.RedisCache,
	log *slog.Logger,
	cat *catalog.Client,
	tokens *auth.Manager,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         database,
		RedisCache: rdb,
		Logger:     log,
		Catalog:    cat,
		Tokens:     tokens,
		Movies:     moviecache.NewResolver(database, cat, log),
		Responder:  server.NewResponder(cfg.IsDevelopment(), log),
	}
}

// RequireAuth is the bearer-token middleware for protected route groups.
func (a *AppContext) RequireAuth() func(next http.Handler) http.Handler {
	return auth.Middleware(a.Tokens, a.Responder)
}
