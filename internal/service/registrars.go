// Package service groups the HTTP-facing services of the API.
package service

import (
	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/server"
	"github.com/oggyb/movie-rating/internal/service/auth"
	"github.com/oggyb/movie-rating/internal/service/favourites"
	"github.com/oggyb/movie-rating/internal/service/friends"
	"github.com/oggyb/movie-rating/internal/service/movies"
	"github.com/oggyb/movie-rating/internal/service/watchlist"
)

// Registrars returns every route group mounted under /api.
func Registrars(appCtx *app.AppContext) []server.Registrar {
	return []server.Registrar{
		auth.NewRegistrar(appCtx),
		movies.NewRegistrar(appCtx),
		watchlist.NewRegistrar(appCtx),
		favourites.NewRegistrar(appCtx),
		friends.NewRegistrar(appCtx),
	}
}
