// Package handler provides the HTTP surface of the Lysbox presign service.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Thanawat984/lysbox-presign/internal/identity"
	"github.com/Thanawat984/lysbox-presign/internal/service"
)

// errorResponse is the uniform error envelope. No partial responses are
// ever emitted: a request either yields {url, path} or this.
type errorResponse struct {
	Error string `json:"error"`
}

// corsAllowedHeaders lists the request headers browsers may send to the
// presign endpoint.
const corsAllowedHeaders = "authorization, x-client-info, apikey, content-type"

// errInvalidBody indicates the request body is not the expected JSON shape.
var errInvalidBody = errors.New("invalid request body: expected JSON {mode, path, contentType?}")

// setCORSHeaders sets the CORS headers on every response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError serializes an error into the uniform envelope with the
// status code its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

// statusForError maps the error taxonomy to HTTP status codes:
// validation 400, auth 401, configuration and signing 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, identity.ErrMissingAuthHeader),
		errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, errInvalidBody),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrMissingPath),
		errors.Is(err, service.ErrInvalidExpiration),
		errors.Is(err, service.ErrUnresolvedPlaceholder),
		errors.Is(err, service.ErrKeyOutsideNamespace):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
