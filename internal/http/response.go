package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/core"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status. Encoding failures are
// logged; headers are already out at that point.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.FromContext(r.Context())
		logger.ErrorContext(r.Context(), "Failed encoding response",
			log.FieldError, err.Error(),
			log.FieldPath, r.URL.Path)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrAlreadyDeleted), errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger := log.FromContext(r.Context())
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		msg = "internal error"
	}
	writeJSON(w, r, status, errorResponse{Error: msg})
}
