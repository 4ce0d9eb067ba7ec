package favourites

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/movie-rating/internal/app"
)

// Registrar ties the favourites service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts /favourites; every route needs a token.
func (r *Registrar) Register(router chi.Router) {
	h := NewHandler(NewService(r.appCtx), r.appCtx.Responder)

	router.Route("/favourites", func(fr chi.Router) {
		fr.Use(r.appCtx.RequireAuth())
		fr.Get("/", h.List)
		fr.Post("/", h.Add)
		fr.Delete("/clear/all", h.Clear)
		fr.Get("/{movieId}", h.Get)
		fr.Delete("/{movieId}", h.Remove)
	})
}
