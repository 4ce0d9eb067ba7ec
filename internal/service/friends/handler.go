package friends

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authn "github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/server"
)

// Handler exposes Service over HTTP.
type Handler struct {
	svc *Service
	rs  *server.Responder
}

func NewHandler(svc *Service, rs *server.Responder) *Handler {
	return &Handler{svc: svc, rs: rs}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	q := r.URL.Query()
	page, err := h.svc.Search(r.Context(), accountID, q.Get("query"), q.Get("cursor"))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, page)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	other, err := userParam(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	st, err := h.svc.State(r.Context(), accountID, other)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, map[string]any{"userId": other, "state": st})
}

// pair adapts a transition on (caller, {userId}) into a handler answering msg.
func (h *Handler) pair(op func(ctx context.Context, me, other uint64) error, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, _ := authn.AccountID(r.Context())
		other, err := userParam(r)
		if err != nil {
			h.rs.Error(w, r, err)
			return
		}
		if err := op(r.Context(), accountID, other); err != nil {
			h.rs.Error(w, r, err)
			return
		}
		h.rs.Message(w, r, http.StatusOK, msg)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	friends, err := h.svc.Friends(r.Context(), accountID)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, friends)
}

func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	reqs, err := h.svc.Requests(r.Context(), accountID)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, reqs)
}

func (h *Handler) Watchlist(w http.ResponseWriter, r *http.Request) {
	accountID, _ := authn.AccountID(r.Context())
	friend, err := userParam(r)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	list, err := h.svc.FriendWatchlist(r.Context(), accountID, friend)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, list)
}

// userParam reads {userId}. Ids that cannot name an account are reported as
// a missing account.
func userParam(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrAccountNotFound
	}
	return id, nil
}
