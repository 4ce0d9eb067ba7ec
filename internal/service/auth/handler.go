package auth

import (
	"net/http"

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

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, resp)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := authn.AccountID(r.Context())
	profile, err := h.svc.Me(r.Context(), id)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, profile)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := authn.AccountID(r.Context())
	var req UpdateRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	user, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := authn.AccountID(r.Context())
	var req ChangePasswordRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), id, req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Password updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := authn.AccountID(r.Context())
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Account deleted successfully")
}

func (h *Handler) SecurityQuestions(w http.ResponseWriter, r *http.Request) {
	h.rs.JSON(w, r, http.StatusOK, map[string][]string{"questions": SecurityQuestions})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	grant, err := h.svc.ForgotPassword(r.Context(), req)
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.JSON(w, r, http.StatusOK, grant)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := h.rs.Decode(r, &req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		h.rs.Error(w, r, err)
		return
	}
	h.rs.Message(w, r, http.StatusOK, "Password reset successfully")
}
