package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/oggyb/movie-rating/internal/app"
)

// loginAttempts per minute per client IP.
const loginAttempts = 10

// Registrar ties the account service into the HTTP router.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register mounts /auth. The /profile prefix serves the same profile routes.
func (r *Registrar) Register(router chi.Router) {
	h := NewHandler(NewService(r.appCtx), r.appCtx.Responder)

	router.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", h.Register)
		ar.With(r.loginLimit()...).Post("/login", h.Login)
		ar.Get("/security-questions", h.SecurityQuestions)
		ar.Post("/forgot-password", h.ForgotPassword)
		ar.Post("/reset-password", h.ResetPassword)

		ar.Group(func(pr chi.Router) {
			pr.Use(r.appCtx.RequireAuth())
			r.profileRoutes(pr, h)
			pr.Delete("/delete", h.Delete)
		})
	})

	router.Route("/profile", func(pr chi.Router) {
		pr.Use(r.appCtx.RequireAuth())
		r.profileRoutes(pr, h)
	})
}

func (r *Registrar) profileRoutes(pr chi.Router, h *Handler) {
	pr.Get("/me", h.Me)
	pr.Put("/update", h.Update)
	pr.Post("/change-password", h.ChangePassword)
}

func (r *Registrar) loginLimit() []func(http.Handler) http.Handler {
	if r.appCtx.Config.RateLimit.Disabled {
		return nil
	}
	rs := r.appCtx.Responder
	return []func(http.Handler) http.Handler{
		httprate.Limit(loginAttempts, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, req *http.Request) {
				rs.Message(w, req, http.StatusTooManyRequests, "Too many login attempts, please try again later")
			}),
		),
	}
}
