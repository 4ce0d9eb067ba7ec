package watchlist

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/movie-rating/internal/app"
)

// Registrar ties the watchlist service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts /watchlist; every route needs a token.
func (r *Registrar) Register(router chi.Router) {
	h := NewHandler(NewService(r.appCtx), r.appCtx.Responder)

	router.Route("/watchlist", func(wr chi.Router) {
		wr.Use(r.appCtx.RequireAuth())
		wr.Get("/", h.List)
		wr.Post("/", h.Add)
		wr.Put("/{listId}/movie/{movieId}/comment", h.UpdateComment)
		wr.Delete("/{listId}/movie/{movieId}", h.Remove)
	})
}
