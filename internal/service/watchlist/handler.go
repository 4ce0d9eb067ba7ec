package watchlist

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

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
	lists, err := h.svc.List(r.Context(), accountID, r.URL.Query().Get("type"))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, lists)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	var req AddRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	list, err := h.svc.Add(r.Context(), accountID, req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusCreated, map[string]any{
		"message":   "Movie added to watchlist successfully",
		"watchlist": list,
	})
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	listID, movieID, err := entryParams(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	var req CommentRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.UpdateComment(r.Context(), accountID, listID, movieID, req.Comment); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Comment updated successfully")
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	listID, movieID, err := entryParams(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.Remove(r.Context(), accountID, listID, movieID); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Movie removed from watchlist successfully")
}

func entryParams(r *http.Request) (uint64, int64, error) {
	listID, err := strconv.ParseUint(chi.URLParam(r, "listId"), 10, 64)
	if err != nil {
		return 0, 0, ErrListNotFound
	}
	movieID, err := movies.ExternalID(r, "movieId")
	if err != nil {
		return 0, 0, err
	}
	return listID, movieID, nil
}
