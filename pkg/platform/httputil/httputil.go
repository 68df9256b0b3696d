package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "atlas/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates a domain error into the error envelope.
//
// Client errors (not found, invalid input) carry the domain message. Everything else
// is reported as a 500 with the endpoint's fixed fallback message so upstream details
// never reach the caller.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	code := dErrors.CodeOf(err)
	status := DomainCodeToHTTPStatus(code)
	message := fallback
	if status < http.StatusInternalServerError && err != nil {
		message = err.Error()
	}
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
// Upstream outages and timeouts stay 500 to keep the public contract stable.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
