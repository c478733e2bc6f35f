package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/rollcall/internal/checkout"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// writeCheckoutError maps the checkout sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, checkout.ErrCodeRequired):
		writeError(w, http.StatusForbidden, "checkout code required")
	case errors.Is(err, checkout.ErrInvalidCode):
		writeError(w, http.StatusForbidden, "invalid checkout code")
	case errors.Is(err, checkout.ErrNotFound):
		writeError(w, http.StatusNotFound, "no open check-in found")
	case errors.Is(err, checkout.ErrUnavailable):
		writeError(w, http.StatusNotFound, "link unavailable")
	case errors.Is(err, checkout.ErrExhaustedRetries):
		writeError(w, http.StatusServiceUnavailable, "could not issue a checkout code")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
