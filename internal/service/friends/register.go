package friends

import (
	"github.com/go-chi/chi/v5"

	"github.com/oggyb/movie-rating/internal/app"
)

// Registrar ties the friends service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts /friends; every route needs a token.
func (r *Registrar) Register(router chi.Router) {
	svc := NewService(r.appCtx)
	h := NewHandler(svc, r.appCtx.Responder)

	router.Route("/friends", func(fr chi.Router) {
		fr.Use(r.appCtx.RequireAuth())
		fr.Get("/search", h.Search)
		fr.Get("/list", h.List)
		fr.Get("/requests", h.Requests)
		fr.Get("/status/{userId}", h.Status)

		fr.Post("/request/{userId}", h.pair(svc.Send, "Friend request sent successfully"))
		fr.Post("/accept/{userId}", h.pair(svc.Accept, "Friend request accepted successfully"))
		fr.Post("/reject/{userId}", h.pair(svc.Reject, "Friend request rejected successfully"))
		fr.Post("/cancel/{userId}", h.pair(svc.Cancel, "Friend request cancelled successfully"))
		fr.Delete("/remove/{userId}", h.pair(svc.Remove, "Friend removed successfully"))

		fr.Get("/{userId}/watchlist", h.Watchlist)
	})
}
