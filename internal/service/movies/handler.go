package movies

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authn "github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/moviecache"
	"github.com/oggyb/movie-rating/internal/server"
)

type RateRequest struct {
	Rating  *float64 `json:"rating" validate:"required"`
	Comment string   `json:"comment" validate:"max=1000"`
}

// Handler exposes Service over HTTP.
type Handler struct {
	svc *Service
	rs  *server.Responder
}

func NewHandler(svc *Service, rs *server.Responder) *Handler {
	return &Handler{svc: svc, rs: rs}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"), pageParam(r))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, page)
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Popular(r.Context(), pageParam(r))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, page)
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	id, err := ExternalID(r, "externalId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	movie, err := h.svc.Details(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, movie)
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	id, err := ExternalID(r, "externalId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	var req RateRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	movie, err := h.svc.Rate(r.Context(), accountID, id, *req.Rating, req.Comment)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Rating saved successfully",
		"movie":   movie,
	})
}

func (h *Handler) Ratings(w http.ResponseWriter, r *http.Request) {
	id, err := ExternalID(r, "externalId")
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	out, err := h.svc.Ratings(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, out)
}

// ExternalID parses a catalog id path parameter.
func ExternalID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, moviecache.ErrInvalidMovieID
	}
	return id, nil
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}
