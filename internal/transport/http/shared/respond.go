// Package shared holds response helpers used by every handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "checkpoint/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are silent;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// WriteError translates a domain error into a status and a JSON body. The
// optional reason is a stable machine-readable string for clients.
func WriteError(w http.ResponseWriter, err error, reason string) {
	WriteJSON(w, StatusOf(err), errorBody{
		Error:  dErrors.MessageOf(err),
		Reason: reason,
	})
}

// StatusOf maps a domain error code to an HTTP status.
func StatusOf(err error) int {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeSecurityRejected:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeExhausted, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
