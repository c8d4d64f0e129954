package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/rolodex/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps directory outcomes to status codes. Anything else is
// logged under op and reported as 500.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("contact not found"))
	case errors.Is(err, apperr.ErrCapacityExceeded):
		writeJSON(w, http.StatusConflict, errorBody("address book is full"))
	case errors.Is(err, apperr.ErrInsufficientSpace):
		writeJSON(w, http.StatusConflict, errorBody("not enough space to add all contacts"))
	case errors.Is(err, apperr.ErrEmpty):
		writeJSON(w, http.StatusNotFound, errorBody("address book is empty"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
