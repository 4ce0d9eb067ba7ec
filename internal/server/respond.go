package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	apperr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/middleware"
	"github.com/oggyb/movie-rating/internal/validation"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Message   string `json:"message"`
	Code      string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Responder writes JSON responses. Dev exposes internal error detail.
type Responder struct {
	Dev    bool
	Logger *slog.Logger
}

func NewResponder(dev bool, log *slog.Logger) *Responder {
	return &Responder{Dev: dev, Logger: log}
}

// JSON writes v with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context(), rs.Logger).Warn("failed to encode response", "err", err)
	}
}

// Message writes {"message": msg}.
func (rs *Responder) Message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	rs.JSON(w, r, status, map[string]string{"message": msg})
}

// Error maps err and writes it. 5xx errors are logged with their cause.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	mapped := apperr.Map(err)
	log := logger.FromContext(r.Context(), rs.Logger)

	if mapped.Status >= http.StatusInternalServerError {
		log.Error("request failed", "status", mapped.Status, "code", mapped.Code, "err", err)
	} else {
		log.Debug("request rejected", "status", mapped.Status, "code", mapped.Code, "err", err)
	}

	body := ErrorBody{
		Message:   mapped.Message,
		Code:      mapped.Code,
		RequestID: middleware.GetRequestID(r.Context()),
	}
	if rs.Dev {
		body.Detail = err.Error()
	}
	rs.JSON(w, r, mapped.Status, body)
}

// Decode reads a JSON body into dst and validates it.
func (rs *Responder) Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidArgument("request body is required")
		}
		return apperr.InvalidArgument("invalid JSON body").Wrap(err)
	}
	return validation.Struct(dst)
}
