package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"llamagate/internal/manager"
	"llamagate/pkg/types"
)

// HTTPError allows collaborators to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

var errBadJSON = errors.New("invalid JSON body")

// statusFor maps an error to its response status.
func statusFor(err error) int {
	var he HTTPError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsNoBackend(err):
		return http.StatusServiceUnavailable
	case manager.IsLoadError(err):
		return http.StatusInternalServerError
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error payload with its mapped status.
func writeError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
