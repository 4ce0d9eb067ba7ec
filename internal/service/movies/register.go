package movies

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/movie-rating/internal/app"
)

// Registrar ties the movies service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts /movies. Browsing and reading are public; rating needs a token.
func (r *Registrar) Register(router chi.Router) {
	h := NewHandler(NewService(r.appCtx), r.appCtx.Responder)

	router.Route("/movies", func(mr chi.Router) {
		mr.Get("/search", h.Search)
		mr.Get("/popular", h.Popular)
		mr.Get("/{externalId}", h.Details)
		mr.Get("/{externalId}/ratings", h.Ratings)
		mr.With(r.appCtx.RequireAuth()).Post("/{externalId}/rate", h.Rate)
	})
}
