package favourites

import (
	"net/http"

	authn "github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/server"
	"github.com/oggyb/movie-rating/internal/service/movies"
)

// Handler exposes Service over HTTP.
type Handler struct {
	svc *Service
	rs  *server.Responder
}

func NewHandler(svc *Service, rs *server.Responder) *Handler {
	return &Handler{svc: svc, rs: rs}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	favs, err := h.svc.List(r.Context(), accountID)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, favs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	id, err := movies.ExternalID(r, "movieId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	f, err := h.svc.Get(r.Context(), accountID, id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, f)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	var req AddRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	f, err := h.svc.Add(r.Context(), accountID, req.TmdbID)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusCreated, map[string]any{
		"message":  "Movie added to favorites successfully",
		"favorite": f,
	})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	id, err := movies.ExternalID(r, "movieId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.Remove(r.Context(), accountID, id); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Removed from favorites")
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	n, err := h.svc.Clear(r.Context(), accountID)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, map[string]any{
		"message": "All favorites cleared",
		"removed": n,
	})
}
