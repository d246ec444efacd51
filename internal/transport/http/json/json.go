// Package json holds the response helpers shared by every handler.
package json

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

// WriteJSON encodes a response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and a consistent error envelope.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, statusFor(domainErr.Code), response)
		return
	}

	// Store sentinels that escaped service-layer wrapping still map to
	// sensible statuses rather than a blanket 500.
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, map[string]string{"error": string(dErrors.CodeNotFound)})
	case errors.Is(err, sentinel.ErrConflict):
		WriteJSON(w, http.StatusConflict, map[string]string{"error": string(dErrors.CodeConflict)})
	case errors.Is(err, sentinel.ErrInvalidInput):
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": string(dErrors.CodeInvalidInput)})
	default:
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": string(dErrors.CodeInternal)})
	}
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
