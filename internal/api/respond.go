package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/folio/internal/profile"
)

// Envelope is the uniform response body. Payloads travel in Data, human
// readable text in Message.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Envelope{Success: true, Data: data})
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, Envelope{Success: false, Message: msg})
}

// writeServiceError maps domain errors to client errors. Anything else is
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, profile.ErrDuplicateProfile):
		httpError(w, http.StatusBadRequest, "Profile already exists")
	case errors.Is(err, profile.ErrNotFound):
		httpError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, profile.ErrEmptyUpdate):
		httpError(w, http.StatusBadRequest, "No data provided")
	case errors.Is(err, profile.ErrBadRequest):
		httpError(w, http.StatusBadRequest, errorMessage(err))
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		httpError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// errorMessage strips the sentinel prefix from a wrapped ErrBadRequest so
// clients see only the detail.
func errorMessage(err error) string {
	if detail, ok := strings.CutPrefix(err.Error(), profile.ErrBadRequest.Error()+": "); ok {
		return detail
	}
	return err.Error()
}
